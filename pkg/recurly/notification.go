package recurly

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

// Notification is a parsed push notification. Type is the document's root element.
type Notification struct {
	Type         enums.NotificationType
	Account      NotificationAccount
	Subscription *NotificationSubscription
	Invoice      *NotificationInvoice
}

// NotificationAccount is the account block carried by every notification.
type NotificationAccount struct {
	Code        string `xml:"account_code"`
	Username    string `xml:"username"`
	Email       string `xml:"email"`
	FirstName   string `xml:"first_name"`
	LastName    string `xml:"last_name"`
	CompanyName string `xml:"company_name"`
}

// AccountInput converts the payload into writable account fields.
func (a NotificationAccount) AccountInput() AccountInput {
	return AccountInput{
		Code:      a.Code,
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.CompanyName,
	}
}

// NotificationSubscription is the optional subscription block.
type NotificationSubscription struct {
	UUID                   string
	PlanCode               string
	PlanName               string
	State                  string
	Quantity               int
	TotalAmountInCents     int64
	ActivatedAt            *time.Time
	CanceledAt             *time.Time
	ExpiresAt              *time.Time
	CurrentPeriodStartedAt *time.Time
	CurrentPeriodEndsAt    *time.Time
	TrialStartedAt         *time.Time
	TrialEndsAt            *time.Time
}

// NotificationInvoice is the optional invoice block.
type NotificationInvoice struct {
	Number             string `xml:"invoice_number"`
	State              string `xml:"state"`
	Currency           string `xml:"currency"`
	TotalAmountInCents int64  `xml:"total_in_cents"`
}

type xmlSubscription struct {
	Plan struct {
		Code string `xml:"plan_code"`
		Name string `xml:"name"`
	} `xml:"plan"`
	UUID                   string `xml:"uuid"`
	State                  string `xml:"state"`
	Quantity               string `xml:"quantity"`
	TotalAmountInCents     string `xml:"total_amount_in_cents"`
	ActivatedAt            string `xml:"activated_at"`
	CanceledAt             string `xml:"canceled_at"`
	ExpiresAt              string `xml:"expires_at"`
	CurrentPeriodStartedAt string `xml:"current_period_started_at"`
	CurrentPeriodEndsAt    string `xml:"current_period_ends_at"`
	TrialStartedAt         string `xml:"trial_started_at"`
	TrialEndsAt            string `xml:"trial_ends_at"`
}

type xmlNotification struct {
	Account      NotificationAccount  `xml:"account"`
	Subscription *xmlSubscription     `xml:"subscription"`
	Invoice      *NotificationInvoice `xml:"invoice"`
}

// ParseNotification decodes a push notification document.
func ParseNotification(body []byte) (*Notification, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification type missing")
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed notification document")
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		var raw xmlNotification
		if err := decoder.DecodeElement(&raw, &start); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed notification document")
		}
		notification := &Notification{
			Type:    enums.NotificationType(strings.TrimSpace(start.Name.Local)),
			Account: trimAccount(raw.Account),
			Invoice: raw.Invoice,
		}
		if raw.Subscription != nil {
			notification.Subscription = raw.Subscription.convert()
		}
		return notification, nil
	}
}

func trimAccount(a NotificationAccount) NotificationAccount {
	return NotificationAccount{
		Code:        strings.TrimSpace(a.Code),
		Username:    strings.TrimSpace(a.Username),
		Email:       strings.TrimSpace(a.Email),
		FirstName:   strings.TrimSpace(a.FirstName),
		LastName:    strings.TrimSpace(a.LastName),
		CompanyName: strings.TrimSpace(a.CompanyName),
	}
}

func (s *xmlSubscription) convert() *NotificationSubscription {
	return &NotificationSubscription{
		UUID:                   strings.TrimSpace(s.UUID),
		PlanCode:               strings.TrimSpace(s.Plan.Code),
		PlanName:               strings.TrimSpace(s.Plan.Name),
		State:                  strings.TrimSpace(s.State),
		Quantity:               int(parseXMLInt(s.Quantity)),
		TotalAmountInCents:     parseXMLInt(s.TotalAmountInCents),
		ActivatedAt:            parseXMLTime(s.ActivatedAt),
		CanceledAt:             parseXMLTime(s.CanceledAt),
		ExpiresAt:              parseXMLTime(s.ExpiresAt),
		CurrentPeriodStartedAt: parseXMLTime(s.CurrentPeriodStartedAt),
		CurrentPeriodEndsAt:    parseXMLTime(s.CurrentPeriodEndsAt),
		TrialStartedAt:         parseXMLTime(s.TrialStartedAt),
		TrialEndsAt:            parseXMLTime(s.TrialEndsAt),
	}
}

func parseXMLInt(value string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// nil="true" elements decode to the empty string.
func parseXMLTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}
