package garage

import (
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/models"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	dateLayout     = "2006-01-02"
	displayLayout  = "02/01/2006"
	formatFallback = "invalid maintenance record"
)

// Layouts accepted for maintenance dates, tried in order.
var dateInputLayouts = []string{dateLayout, time.RFC3339, displayLayout}

// MaintenanceRecord is a single service event. It cannot be changed once built.
type MaintenanceRecord struct {
	date        time.Time
	serviceType string
	cost        float64
	description string
	built       bool
}

// NewMaintenanceRecord parses the date (YYYY-MM-DD, RFC3339 or DD/MM/YYYY) and
// validates every field before building the record.
func NewMaintenanceRecord(date, serviceType string, cost float64, description string) (*MaintenanceRecord, error) {
	parsed, ok := parseDate(date)
	return newRecord(parsed, ok, date, serviceType, cost, description)
}

// NewMaintenanceRecordAt builds a record from an already parsed time.
func NewMaintenanceRecordAt(date time.Time, serviceType string, cost float64, description string) (*MaintenanceRecord, error) {
	return newRecord(date, !date.IsZero(), date.String(), serviceType, cost, description)
}

func newRecord(date time.Time, dateOK bool, rawDate, serviceType string, cost float64, description string) (*MaintenanceRecord, error) {
	var problems []string
	if !dateOK {
		problems = append(problems, fmt.Sprintf("date %q is not a valid date", rawDate))
	}
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		problems = append(problems, "service type must not be empty")
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		problems = append(problems, "cost must be a number")
	} else if cost < 0 {
		problems = append(problems, fmt.Sprintf("cost must not be negative (got %v)", cost))
	}
	if err := newValidationError("maintenance record", problems); err != nil {
		return nil, err
	}

	return &MaintenanceRecord{
		date:        utcDay(date),
		serviceType: serviceType,
		cost:        cost,
		description: strings.TrimSpace(description),
		built:       true,
	}, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date returns the service day at UTC midnight.
func (r *MaintenanceRecord) Date() time.Time { return r.date }

// DateString returns the service day as YYYY-MM-DD.
func (r *MaintenanceRecord) DateString() string { return r.date.Format(dateLayout) }

func (r *MaintenanceRecord) ServiceType() string {
	return r.serviceType
}

func (r *MaintenanceRecord) Cost() float64 {
	return r.cost
}

func (r *MaintenanceRecord) Description() string {
	return r.description
}

// valid reports whether r came out of a constructor.
func (r *MaintenanceRecord) valid() bool {
	return r != nil && r.built
}

// Format renders a one-line summary such as
// "15/03/2024 - Oil Change (R$ 150,00) - Desc: synthetic oil".
func (r *MaintenanceRecord) Format() string {
	if !r.valid() {
		log.Warn("Formatting an unbuilt maintenance record")
		return formatFallback
	}
	line := fmt.Sprintf("%s - %s (%s)", r.date.Format(displayLayout), r.serviceType, formatBRL(r.cost))
	if r.description != "" {
		line += " - Desc: " + r.description
	}
	return line
}

// IsFutureScheduled reports whether the service day is after today (UTC).
// A record dated today is due, not scheduled.
func (r *MaintenanceRecord) IsFutureScheduled() bool {
	if !r.valid() {
		return false
	}
	return r.date.After(utcDay(time.Now()))
}

// Document converts the record to its storage shape.
func (r *MaintenanceRecord) Document() models.MaintenanceDocument {
	return models.MaintenanceDocument{
		Type:        models.MaintenanceType,
		Date:        r.DateString(),
		ServiceType: r.serviceType,
		Cost:        r.cost,
		Description: r.description,
	}
}

// formatBRL renders v as reais using the pt-BR symbol and separators.
func formatBRL(v float64) string {
	p := message.NewPrinter(language.BrazilianPortuguese)
	return p.Sprint(currency.Symbol(currency.BRL.Amount(v)))
}
