package models

import "fmt"

type ReminderType string

const (
	ReminderLongLead  ReminderType = "24h_before"
	ReminderShortLead ReminderType = "2h_before"
)

// ReminderTypes lists every reminder type the engine dispatches.
var ReminderTypes = []ReminderType{ReminderLongLead, ReminderShortLead}

// ParseReminderType accepts the stored value ("24h_before") or the short
// alias ("long", "short").
func ParseReminderType(s string) (ReminderType, error) {
	switch s {
	case string(ReminderLongLead), "long", "lead_long":
		return ReminderLongLead, nil
	case string(ReminderShortLead), "short", "lead_short":
		return ReminderShortLead, nil
	}
	return "", fmt.Errorf("invalid reminder type: %s", s)
}

// LeadPhrase is the human wording used in message bodies.
func (t ReminderType) LeadPhrase() string {
	switch t {
	case ReminderLongLead:
		return "tomorrow"
	case ReminderShortLead:
		return "in 2 hours"
	}
	return "soon"
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

type DeliveryStatus string

const (
	// DeliverySending marks a reservation taken before the send is attempted.
	DeliverySending DeliveryStatus = "sending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// ReminderPayload is the data rendered into every channel's message.
type ReminderPayload struct {
	ClientName   string `json:"clientName"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	ServiceName  string `json:"serviceName"`
	SalonName    string `json:"salonName"`
	SalonPhone   string `json:"salonPhone,omitempty"`
	SalonAddress string `json:"salonAddress,omitempty"`
	LeadPhrase   string `json:"leadPhrase"`
}

// NewReminderPayload builds the payload for one due appointment.
func NewReminderPayload(a DueAppointment, t ReminderType) ReminderPayload {
	return ReminderPayload{
		ClientName:   a.ClientName,
		Date:         a.CalendarDate(),
		Time:         a.ClockTime(),
		ServiceName:  a.ServiceName,
		SalonName:    a.SalonName,
		SalonPhone:   a.SalonPhone,
		SalonAddress: a.SalonAddress,
		LeadPhrase:   t.LeadPhrase(),
	}
}

func (p ReminderPayload) Subject() string {
	return fmt.Sprintf("Reminder: your appointment at %s %s", p.SalonName, p.LeadPhrase)
}

func (p ReminderPayload) Text() string {
	msg := fmt.Sprintf("Hi %s, this is a reminder that your %s appointment at %s is %s (%s at %s).",
		p.ClientName, p.ServiceName, p.SalonName, p.LeadPhrase, p.Date, p.Time)
	if p.SalonAddress != "" {
		msg += " Address: " + p.SalonAddress + "."
	}
	if p.SalonPhone != "" {
		msg += " Questions? Call " + p.SalonPhone + "."
	}
	return msg
}
