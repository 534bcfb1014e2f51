package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_email_deliveries_total",
		Help: "Outbound email attempts by transport and result.",
	}, []string{"transport", "result"})

	CampaignSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_campaign_sends_total",
		Help: "Send operations by segment (individual or bulk).",
	}, []string{"segment"})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
)
