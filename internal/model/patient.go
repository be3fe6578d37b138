package model

import (
	"time"
)

const MessagePatientCreated = "Patient Details Added Successfully"

// EmergencyContact is a blank-able emergency contact row
type EmergencyContact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Mobile    string `json:"mobile"`
}

// PatientInsurance is a blank-able insurance row. The product requires at
// least one row to be present even when every field is empty.
type PatientInsurance struct {
	Active                 bool                   `json:"active"`
	InsuranceID            string                 `json:"insuranceId"`
	CopayType              string                 `json:"copayType"`
	CoInsurance            string                 `json:"coInsurance"`
	ClaimNumber            string                 `json:"claimNumber"`
	Note                   string                 `json:"note"`
	DeductibleAmount       string                 `json:"deductibleAmount"`
	EmployerName           string                 `json:"employerName"`
	EmployerAddress        Address                `json:"employerAddress"`
	SubscriberFirstName    string                 `json:"subscriberFirstName"`
	SubscriberLastName     string                 `json:"subscriberLastName"`
	SubscriberMiddleName   string                 `json:"subscriberMiddleName"`
	SubscriberSSN          string                 `json:"subscriberSsn"`
	SubscriberMobileNumber string                 `json:"subscriberMobileNumber"`
	SubscriberAddress      Address                `json:"subscriberAddress"`
	GroupID                string                 `json:"groupId"`
	MemberID               string                 `json:"memberId"`
	GroupName              string                 `json:"groupName"`
	FrontPhoto             string                 `json:"frontPhoto"`
	BackPhoto              string                 `json:"backPhoto"`
	InsuredFirstName       string                 `json:"insuredFirstName"`
	InsuredLastName        string                 `json:"insuredLastName"`
	Address                Address                `json:"address"`
	InsuredBirthDate       string                 `json:"insuredBirthDate"`
	CoPay                  string                 `json:"coPay"`
	InsurancePayer         map[string]interface{} `json:"insurancePayer"`
}

// PatientConsent records when consent was signed
type PatientConsent struct {
	SignedDate time.Time `json:"signedDate"`
}

// CreatePatientRequest is the body of POST /api/master/patient
type CreatePatientRequest struct {
	PhoneNotAvailable      bool               `json:"phoneNotAvailable"`
	EmailNotAvailable      bool               `json:"emailNotAvailable"`
	RegistrationDate       string             `json:"registrationDate"`
	FirstName              string             `json:"firstName" binding:"required"`
	MiddleName             string             `json:"middleName"`
	LastName               string             `json:"lastName" binding:"required"`
	Timezone               string             `json:"timezone"`
	BirthDate              time.Time          `json:"birthDate" binding:"required"`
	Gender                 string             `json:"gender" binding:"required,oneof=MALE FEMALE OTHER"`
	Email                  string             `json:"email" binding:"omitempty,email"`
	SSN                    string             `json:"ssn"`
	MRN                    string             `json:"mrn"`
	Languages              []string           `json:"languages"`
	Avatar                 string             `json:"avatar"`
	MobileNumber           string             `json:"mobileNumber"`
	FaxNumber              string             `json:"faxNumber"`
	HomePhone              string             `json:"homePhone"`
	Address                Address            `json:"address"`
	EmergencyContacts      []EmergencyContact `json:"emergencyContacts"`
	PatientInsurances      []PatientInsurance `json:"patientInsurances"`
	EmailConsent           bool               `json:"emailConsent"`
	MessageConsent         bool               `json:"messageConsent"`
	CallConsent            bool               `json:"callConsent"`
	PatientConsentEntities []PatientConsent   `json:"patientConsentEntities"`
}

// NewCreatePatientRequest builds a minimal registration for id, signed at now.
func NewCreatePatientRequest(id Identity, birthDate, now time.Time) CreatePatientRequest {
	return CreatePatientRequest{
		PhoneNotAvailable: id.Phone == "",
		EmailNotAvailable: id.Email == "",
		FirstName:         id.FirstName,
		LastName:          id.LastName,
		Timezone:          "IST",
		BirthDate:         birthDate.UTC(),
		Gender:            GenderMale,
		Email:             id.Email,
		MobileNumber:      id.Phone,
		EmergencyContacts: []EmergencyContact{{}},
		PatientInsurances: []PatientInsurance{{
			Active:         true,
			CopayType:      "FIXED",
			InsurancePayer: map[string]interface{}{},
		}},
		PatientConsentEntities: []PatientConsent{{SignedDate: now.UTC()}},
	}
}

// PatientSummary is one entry of the patient listing
type PatientSummary struct {
	UUID         string `json:"uuid"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber,omitempty"`
	Gender       string `json:"gender,omitempty"`
	BirthDate    string `json:"birthDate,omitempty"`
}

// PatientRecord is a generated patient plus its server-assigned UUID
type PatientRecord struct {
	Identity
	BirthDate time.Time `json:"birthDate"`
	UUID      string    `json:"uuid,omitempty"`
}
