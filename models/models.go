package models

import (
	"time"
)

const (
	TierBasic  = "BASIC"
	TierSilver = "SILVER"
	TierGold   = "GOLD"
)

type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Tier     string    `json:"tier"`
	JoinedAt time.Time `json:"joinedAt"`
}

// EmailLog is one row per send operation. Recipient holds the addressed
// list for individual sends and "bulk" for tier sends. MemberID is set when
// an individual send went to exactly one known member.
type EmailLog struct {
	ID         int64     `json:"id"`
	Recipient  string    `json:"to"`
	Subject    string    `json:"subject"`
	Tier       string    `json:"tier"`
	Count      int       `json:"count"`
	Attempted  int       `json:"attempted"`
	SentAt     time.Time `json:"sentAt"`
	UserID     *string   `json:"userId,omitempty"`
	UserName   string    `json:"userName"`
	MemberID   *string   `json:"memberId,omitempty"`
	MemberName *string   `json:"memberName,omitempty"`
	MemberTier *string   `json:"memberTier,omitempty"`
}

type EmailTemplate struct {
	ID      string `json:"id"`
	UserID  string `json:"-"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	CampaignFields
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CampaignFields are the optional layout inputs shared by templates and sends.
type CampaignFields struct {
	Layout          string `json:"templateKey"`
	BannerURL       string `json:"bannerUrl"`
	CTAText         string `json:"ctaText"`
	CTAURL          string `json:"ctaUrl"`
	LeftImageURL    string `json:"leftImageUrl"`
	LeftImageLabel  string `json:"leftImageLabel"`
	RightImageURL   string `json:"rightImageUrl"`
	RightImageLabel string `json:"rightImageLabel"`
}

type TierCount struct {
	Tier  string `json:"tier"`
	Count int    `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

type ReportOverview struct {
	TotalMembers int          `json:"totalMembers"`
	Basic        int          `json:"basic"`
	Silver       int          `json:"silver"`
	Gold         int          `json:"gold"`
	Series       []DailyCount `json:"series"`
}
