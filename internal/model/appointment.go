package model

import (
	"time"
)

const MessageAppointmentBooked = "Appointment booked successfully"

// AppointmentRequest is the body of POST /api/master/appointment
type AppointmentRequest struct {
	Mode           string    `json:"mode" binding:"required,oneof=VIRTUAL IN_PERSON"`
	PatientID      string    `json:"patientId" binding:"required"`
	ProviderID     string    `json:"providerId" binding:"required"`
	Type           string    `json:"type" binding:"required"`
	PaymentType    string    `json:"paymentType"`
	StartTime      time.Time `json:"startTime" binding:"required"`
	EndTime        time.Time `json:"endTime" binding:"required,gtfield=StartTime"`
	Timezone       string    `json:"timezone"`
	Duration       int       `json:"duration"`
	ChiefComplaint string    `json:"chiefComplaint"`
	Note           string    `json:"note"`
	IsRecurring    bool      `json:"isRecurring"`
	TenantID       string    `json:"xTENANTID"`
}

// AppointmentData is the data block of a successful booking
type AppointmentData struct {
	UUID       string    `json:"uuid"`
	ProviderID string    `json:"providerId"`
	PatientID  string    `json:"patientId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Status     string    `json:"status"`
}

// Booking links a provider, a patient and a UTC slot. It exists only after a
// successful booking call.
type Booking struct {
	UUID         string    `json:"uuid,omitempty"`
	ProviderUUID string    `json:"providerUuid"`
	PatientUUID  string    `json:"patientUuid"`
	StartUTC     time.Time `json:"startUtc"`
	EndUTC       time.Time `json:"endUtc"`
}
