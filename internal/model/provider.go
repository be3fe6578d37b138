package model

const (
	RoleProvider = "PROVIDER"
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"

	MessageProviderCreated = "Provider created successfully"
)

// LicenceInformation is one state licence row on a provider.
type LicenceInformation struct {
	UUID          string `json:"uuid"`
	LicenseState  string `json:"licenseState"`
	LicenseNumber string `json:"licenseNumber"`
}

// DEAInformation is one DEA registration row on a provider.
type DEAInformation struct {
	DEAState      string `json:"deaState"`
	DEANumber     string `json:"deaNumber"`
	DEATermDate   string `json:"deaTermDate"`
	DEAActiveDate string `json:"deaActiveDate"`
}

// CreateProviderRequest is the body of POST /api/master/provider.
// Only names, email, gender and role are mandatory; the rest may be blank.
type CreateProviderRequest struct {
	RoleType              string               `json:"roleType"`
	Active                bool                 `json:"active"`
	AdminAccess           bool                 `json:"admin_access"`
	Status                bool                 `json:"status"`
	Avatar                string               `json:"avatar"`
	Role                  string               `json:"role" binding:"required"`
	FirstName             string               `json:"firstName" binding:"required"`
	LastName              string               `json:"lastName" binding:"required"`
	Gender                string               `json:"gender" binding:"required,oneof=MALE FEMALE OTHER"`
	Phone                 string               `json:"phone"`
	NPI                   string               `json:"npi"`
	Specialities          []string             `json:"specialities"`
	GroupNPINumber        string               `json:"groupNpiNumber"`
	LicensedStates        []string             `json:"licensedStates"`
	LicenseNumber         string               `json:"licenseNumber"`
	AcceptedInsurances    []string             `json:"acceptedInsurances"`
	Experience            string               `json:"experience"`
	TaxonomyNumber        string               `json:"taxonomyNumber"`
	WorkLocations         []string             `json:"workLocations"`
	Email                 string               `json:"email" binding:"required,email"`
	OfficeFaxNumber       string               `json:"officeFaxNumber"`
	AreaFocus             string               `json:"areaFocus"`
	HospitalAffiliation   string               `json:"hospitalAffiliation"`
	AgeGroupSeen          []string             `json:"ageGroupSeen"`
	SpokenLanguages       []string             `json:"spokenLanguages"`
	ProviderEmployment    string               `json:"providerEmployment"`
	InsuranceVerification string               `json:"insurance_verification"`
	PriorAuthorization    string               `json:"prior_authorization"`
	SecondOpinion         string               `json:"secondOpinion"`
	CareService           []string             `json:"careService"`
	Bio                   string               `json:"bio"`
	Expertise             string               `json:"expertise"`
	WorkExperience        string               `json:"workExperience"`
	LicenceInformation    []LicenceInformation `json:"licenceInformation"`
	DEAInformation        []DEAInformation     `json:"deaInformation"`
}

// NewCreateProviderRequest fills the mandatory fields from id and blanks the rest.
func NewCreateProviderRequest(id Identity) CreateProviderRequest {
	return CreateProviderRequest{
		RoleType:           RoleProvider,
		AdminAccess:        true,
		Role:               RoleProvider,
		FirstName:          id.FirstName,
		LastName:           id.LastName,
		Gender:             GenderMale,
		Email:              id.Email,
		LicenceInformation: []LicenceInformation{{}},
		DEAInformation:     []DEAInformation{{}},
	}
}

// ProviderSummary is one entry of the provider listing.
type ProviderSummary struct {
	UUID      string `json:"uuid"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Active    bool   `json:"active"`
}

// ProviderRecord is a generated provider plus its server-assigned UUID.
// UUID is empty until the provider has been resolved from the listing.
type ProviderRecord struct {
	Identity
	UUID string `json:"uuid,omitempty"`
}
