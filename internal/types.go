package internal

type Offer struct {
	OfferID       string `json:"OfferId"`
	TimeStamp     string `json:"TimeStamp"`
	Title         string `json:"Title"`
	FirstName     string `json:"FirstName"`
	MiddleName    string `json:"MiddleName"`
	LastName      string `json:"LastName"`
	Gender        string `json:"Gender"`
	DoB           string `json:"DoB"`
	Email         string `json:"Email"`
	StudentOrigin string `json:"StudentOrigin"`

	ComplianceAndOtherInfo Compliance          `json:"ComplianceAndOtherInfo"`
	Addresses              []Address           `json:"Addresses"`
	AppliedCourses         []AppliedCourse     `json:"AppliedCourses"`
	Disabilities           []Disability        `json:"Disabilities"`
	EmergencyContact       EmergencyContact    `json:"EmergencyContact"`
	EducationHistoryList   []EducationHistory  `json:"EducationHistoryList"`
	EmploymentHistoryList  []EmploymentHistory `json:"EmploymentHistoryList"`
	LeadsMarketingCampaign LeadsMarketing      `json:"Leads_MarketingCampaign"`
}

// Compliance fields tagged with raw are filled from the "compliance" section.
// The visa block is only set for overseas students; nil pointers are omitted.
type Compliance struct {
	OfferID                  string `json:"OfferId"`
	CountryBirth             string `json:"CountryBirth" raw:"country_birth" default:"China"`
	Nationality              string `json:"Nationality" raw:"nationality" default:"Chinese"`
	PassportNumber           string `json:"PassportNumber" raw:"passport_number"`
	PassportExpiryDate       string `json:"PassportExpiryDate" raw:"passport_expiry_date" coerce:"timestamp,optional"`
	FirstLanguage            string `json:"FirstLanguage" raw:"first_language" coerce:"language"`
	HowWellEngSpeak          string `json:"HowWellEngSpeak" raw:"how_well_eng_speak"`
	StudyReason              string `json:"StudyReason" raw:"study_reason"`
	CurrentEmployStatus      string `json:"CurrentEmployStatus" raw:"current_employ_status"`
	IndustryEmployment       string `json:"IndustryEmployment" raw:"industry_employment"`
	OccupationCode           string `json:"OccupationCode" raw:"occupation_code"`
	USI                      string `json:"USI" raw:"usi"`
	IsAboriginal             bool   `json:"IsAboriginal" raw:"is_aboriginal"`
	IsTorresStraitIslander   bool   `json:"IsTorresStraitIslander" raw:"is_torres_strait_islander"`
	IsEngLanguageInClass     bool   `json:"IsEngLanguageInClass" raw:"is_eng_language_in_class" default:"true"`
	EngTestType              string `json:"EngTestType" raw:"eng_test_type"`
	EngTestDate              string `json:"EngTestDate" raw:"eng_test_date" coerce:"timestamp,optional"`
	EngTestListeningScore    string `json:"EngTestListeningScore" raw:"eng_test_listening_score"`
	EngTestReadingScore      string `json:"EngTestReadingScore" raw:"eng_test_reading_score"`
	EngTestWritingScore      string `json:"EngTestWritingScore" raw:"eng_test_writing_score"`
	EngTestSpeakingScore     string `json:"EngTestSpeakingScore" raw:"eng_test_speaking_score"`
	EngTestOverallScore      string `json:"EngTestOverallScore" raw:"eng_test_overall_score"`
	HighSchoolLevel          string `json:"HighSchoolLevel" raw:"high_school_level" default:"@@"`
	HighSchoolYearCompleted  int    `json:"HighSchoolYearCompleted" raw:"high_school_year_completed" default:"0"`
	IsStillAtHighSchool      bool   `json:"IsStillAtHighSchool" raw:"is_still_at_high_school"`
	SchoolType               string `json:"SchoolType" raw:"school_type"`
	IsDisabled               bool   `json:"IsDisabled" raw:"is_disabled"`
	IsRequestHelpForDisabled bool   `json:"IsRequestHelpForDisabled" raw:"is_request_help_for_disabled"`

	VisaType       *string `json:"VisaType,omitempty"`
	VisaNumber     *string `json:"VisaNumber,omitempty"`
	VisaExpiryDate *string `json:"VisaExpiryDate,omitempty"`
}

type Address struct {
	OfferID        string `json:"OfferId"`
	AddressType    string `json:"AddressType" raw:"address_type" default:"Current"`
	IsPrimary      bool   `json:"IsPrimary" raw:"is_primary" default:"true"`
	BuildingName   string `json:"BuildingName" raw:"building_name"`
	FlatUnitDetail string `json:"FlatUnitDetail" raw:"flat_unit_detail"`
	StreetNumber   string `json:"StreetNumber" raw:"street_number" default:"1"`
	StreetName     string `json:"StreetName" raw:"street_name" default:"Sample St"`
	Suburb         string `json:"Suburb" raw:"suburb" default:"Melbourne"`
	State          string `json:"State" raw:"state" default:"VIC"`
	Postcode       string `json:"Postcode" raw:"postcode" default:"3000"`
	Country        string `json:"Country" raw:"country" default:"Australia"`
	Phone          string `json:"Phone" raw:"phone"`
	Fax            string `json:"Fax" raw:"fax"`
	Mobile         string `json:"Mobile" raw:"mobile" default:"+61 4xx xxx xxx"`
}

type AppliedCourse struct {
	OfferID            string  `json:"OfferId"`
	CourseID           string  `json:"CourseId" raw:"course_id" default:"CPC50220"`
	CampusID           int     `json:"CampusId" raw:"campus_id" default:"1"`
	IntakeDate         string  `json:"IntakeDate" raw:"intake_date" coerce:"timestamp" days:"30"`
	StartDate          string  `json:"StartDate" raw:"start_date" coerce:"timestamp" days:"30"`
	FinishDate         string  `json:"FinishDate" raw:"finish_date" coerce:"timestamp" days:"370"`
	ElicosNumOfWeeks   int     `json:"ELICOS_NumOfWeeks" raw:"elicos_num_of_weeks" default:"0"`
	TuitionFee         float64 `json:"TuitionFee" raw:"tuition_fee" default:"12000"`
	EnrolmentFee       float64 `json:"EnrolmentFee" raw:"enrolment_fee" default:"250"`
	MaterialFee        float64 `json:"MaterialFee" raw:"material_fee" default:"300"`
	UpfrontFee         float64 `json:"UpfrontFee" raw:"upfront_fee" default:"500"`
	SpecialCondition   string  `json:"SpecialCondition" raw:"special_condition"`
	ApplicationRequest string  `json:"ApplicationRequest" raw:"application_request" default:"Direct apply"`
	Status             string  `json:"Status" raw:"status"`
}

type Disability struct {
	OfferID        string `json:"OfferId"`
	DisabilityCode string `json:"DisabilityCode" raw:"disability_code"`
	DisabilityName string `json:"DisabilityName" raw:"disability_name"`
	OtherValue     string `json:"OtherValue" raw:"other_value"`
}

type EmergencyContact struct {
	OfferID      string `json:"OfferId"`
	ContactType  string `json:"ContactType" raw:"contact_type" default:"Emergency"`
	Relationship string `json:"Relationship" raw:"relationship" default:"Parent"`
	ContactName  string `json:"ContactName" raw:"contact_name" default:"Wei Zhang"`
	Address      string `json:"Address" raw:"address" default:"123 Collins St, Melbourne VIC 3000"`
	Phone        string `json:"Phone" raw:"phone" default:"+61 3 xxxx xxxx"`
	Email        string `json:"Email" raw:"email" default:"parent@example.com"`
}

type EducationHistory struct {
	OfferID                    string `json:"OfferId"`
	QualificationName          string `json:"QualificationName" raw:"qualification_name"`
	InstituteName              string `json:"InstituteName" raw:"institute_name"`
	InstituteLocation          string `json:"InstituteLocation" raw:"institute_location"`
	YearCompleted              int    `json:"YearCompleted" raw:"year_completed" default:"0"`
	EducationLevelCode         string `json:"EducationLevelCode" raw:"education_level_code"`
	AchievementRecognitionCode string `json:"AchievementRecognitionCode" raw:"achievement_recognition_code"`
}

type EmploymentHistory struct {
	OfferID        string `json:"OfferId"`
	EmployerName   string `json:"EmployerName" raw:"employer_name"`
	JobTitle       string `json:"JobTitle" raw:"job_title"`
	JobDescription string `json:"JobDescription" raw:"job_description"`
	FromDate       string `json:"FromDate" raw:"from_date" coerce:"timestamp" days:"30"`
	ToDate         string `json:"ToDate" raw:"to_date" coerce:"timestamp" days:"30"`
}

type LeadsMarketing struct {
	OfferID      string `json:"OfferId"`
	KnowFrom     string `json:"KnowFrom" raw:"know_from" default:"Agent"`
	LeadSource   string `json:"LeadSource" raw:"lead_source" default:"Web"`
	CampaignName string `json:"CampaignName" raw:"campaign_name" default:"Website"`
}

type OfferStatus string

const (
	OfferComposed  OfferStatus = "composed"
	OfferValidated OfferStatus = "validated"
	OfferRejected  OfferStatus = "rejected"
	OfferSubmitted OfferStatus = "submitted"
	OfferFailed    OfferStatus = "failed"
)

type SubmissionKind string

const (
	SubmissionValidate SubmissionKind = "validate"
	SubmissionSubmit   SubmissionKind = "submit"
)

type OfferRow struct {
	ID           int
	OfferID      string
	Source       string
	DocumentJSON string
	Issues       []string
	Status       OfferStatus
	OutputPath   string
	CreatedAt    string
	UpdatedAt    string
}

type SubmissionRow struct {
	ID           int
	OfferID      string
	Kind         SubmissionKind
	StatusCode   int
	ResponseBody string
	CreatedAt    string
}

const (
	IntakeFetched   = "fetched"
	IntakeProcessed = "processed"
	IntakeSkipped   = "skipped"
	IntakeFailed    = "failed"
)

type IntakeRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type OfferExportRow struct {
	OfferID       string
	Source        string
	Status        string
	FirstName     string
	LastName      string
	Email         string
	StudentOrigin string
	CourseIDs     string
	IssueCount    int
	Issues        []string
	LastHTTPCode  *int
	UpdatedAt     string
}
