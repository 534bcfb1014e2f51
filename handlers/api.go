package handlers

import (
	"time"

	"membercrm/config"
	"membercrm/services"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const reportCacheTTL = 30 * time.Second

// API holds what the route handlers share. SQL goes through db.GetDB().
type API struct {
	cfg      *config.Config
	logger   *zap.Logger
	mailer   *services.Mailer
	storage  services.ObjectStorage
	sessions *services.Sessions
	slack    *services.SlackNotifier
	reports  *gocache.Cache
	now      func() time.Time
}

type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Mailer   *services.Mailer
	Storage  services.ObjectStorage // nil disables uploads
	Sessions *services.Sessions
	Slack    *services.SlackNotifier
}

func New(d Deps) *API {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	registerValidators()
	return &API{
		cfg:      d.Config,
		logger:   d.Logger,
		mailer:   d.Mailer,
		storage:  d.Storage,
		sessions: d.Sessions,
		slack:    d.Slack,
		reports:  gocache.New(reportCacheTTL, time.Minute),
		now:      time.Now,
	}
}

func (a *API) invalidateReports() {
	a.reports.Flush()
}
