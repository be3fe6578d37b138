package model

import (
	"strconv"
	"strings"
	"time"
)

const (
	ModeVirtual   = "VIRTUAL"
	ModeInPerson  = "IN_PERSON"
	ConsultNew    = "NEW"
	ConsultFollow = "FOLLOW_UP"

	// MessageAvailabilityAdded is followed by the provider's full name.
	MessageAvailabilityAdded = "Availability added successfully for provider"
)

// AvailabilitySetting configures one consult type.
type AvailabilitySetting struct {
	Type          string `json:"type" binding:"required"`
	SlotTime      string `json:"slotTime" binding:"required"`
	MinNoticeUnit string `json:"minNoticeUnit"`
}

// DaySlot is one weekly recurring block of availability in the provider's zone.
type DaySlot struct {
	Day              string `json:"day" binding:"required"`
	StartTime        string `json:"startTime" binding:"required"`
	EndTime          string `json:"endTime" binding:"required"`
	AvailabilityMode string `json:"availabilityMode"`
}

// BlockDay excludes a date range from availability.
type BlockDay struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// AvailabilityRequest is the body of POST /api/master/provider/availability-setting
type AvailabilityRequest struct {
	SetToWeekdays       bool                  `json:"setToWeekdays"`
	ProviderID          string                `json:"providerId" binding:"required"`
	BookingWindow       string                `json:"bookingWindow"`
	Timezone            string                `json:"timezone" binding:"required"`
	BufferTime          int                   `json:"bufferTime"`
	InitialConsultTime  int                   `json:"initialConsultTime"`
	FollowupConsultTime int                   `json:"followupConsultTime"`
	Settings            []AvailabilitySetting `json:"settings" binding:"required,dive"`
	BlockDays           []BlockDay            `json:"blockDays"`
	DaySlots            []DaySlot             `json:"daySlots" binding:"required,min=1,dive"`
	BookBefore          string                `json:"bookBefore"`
	TenantID            string                `json:"xTENANTID"`
}

// AvailabilityWindow is the (day, start, end, zone, mode) tuple a run attaches
// to its provider, together with the consult settings it is published with.
type AvailabilityWindow struct {
	Day           time.Weekday
	StartTime     string
	EndTime       string
	Timezone      string
	Mode          string
	SlotMinutes   int
	BookingWindow string
	MinNoticeUnit string
}

// Request renders the window as a weekly availability setting for providerID.
func (w AvailabilityWindow) Request(providerID, tenant string) AvailabilityRequest {
	return AvailabilityRequest{
		ProviderID:    providerID,
		BookingWindow: w.BookingWindow,
		Timezone:      w.Timezone,
		Settings: []AvailabilitySetting{{
			Type:          ConsultNew,
			SlotTime:      strconv.Itoa(w.SlotMinutes),
			MinNoticeUnit: w.MinNoticeUnit,
		}},
		BlockDays: []BlockDay{},
		DaySlots: []DaySlot{{
			Day:              strings.ToUpper(w.Day.String()),
			StartTime:        w.StartTime,
			EndTime:          w.EndTime,
			AvailabilityMode: w.Mode,
		}},
		BookBefore: "undefined undefined",
		TenantID:   tenant,
	}
}

// Slot is one bookable interval returned by the slot listing, in UTC.
type Slot struct {
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	AvailabilityMode string    `json:"availabilityMode,omitempty"`
	Available        bool      `json:"available"`
}

// AvailabilitySettingView is the stored availability returned by the GET endpoint.
type AvailabilitySettingView struct {
	ProviderID    string                `json:"providerId"`
	Timezone      string                `json:"timezone"`
	BookingWindow string                `json:"bookingWindow"`
	Settings      []AvailabilitySetting `json:"settings"`
	DaySlots      []DaySlot             `json:"daySlots"`
	BlockDays     []BlockDay            `json:"blockDays"`
}
