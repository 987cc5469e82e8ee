package pipeline

import (
	"fmt"
	"time"

	"studentoffer/internal"
	"studentoffer/internal/util"
)

type Composer struct {
	Now func() time.Time
}

func NewComposer() *Composer {
	return &Composer{Now: time.Now}
}

// Compose coerces an untrusted raw config into a complete offer. It never
// fails: every missing or malformed field takes its default, and the four
// allow-listed fields record a note when they had to be replaced.
func Compose(raw map[string]any) (internal.Offer, []string) {
	return NewComposer().Compose(raw)
}

func (c *Composer) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Composer) Compose(raw map[string]any) (internal.Offer, []string) {
	now := c.now()
	if raw == nil {
		raw = map[string]any{}
	}

	offerID := trimmed(raw["offer_id"])
	if offerID == "" {
		offerID = "OFFER_" + util.CompactLocal(now)
	}

	student := buildStudent(raw, now)
	issues := make([]string, 0)
	reject := func(field, value, replacement string) {
		issues = append(issues, fmt.Sprintf("%s '%s' invalid -> '%s'", field, value, replacement))
	}

	title, ok := ParseTitle(student.Title)
	if !ok {
		reject("Title", student.Title, string(title))
	}
	gender, ok := ParseGender(student.Gender)
	if !ok {
		reject("Gender", student.Gender, string(gender))
	}
	origin, ok := ParseStudentOrigin(student.StudentOrigin)
	if !ok {
		reject("StudentOrigin", student.StudentOrigin, string(origin))
	}
	email, ok := ParseEmail(student.Email)
	if !ok {
		reject("Email", student.Email, email)
	}

	offer := internal.Offer{
		OfferID:       offerID,
		TimeStamp:     util.Timestamp(raw["timestamp"], now, 0),
		Title:         string(title),
		FirstName:     student.FirstName,
		MiddleName:    student.MiddleName,
		LastName:      student.LastName,
		Gender:        string(gender),
		DoB:           student.DoB,
		Email:         email,
		StudentOrigin: string(origin),

		ComplianceAndOtherInfo: buildCompliance(raw, offerID, origin, now),
		Addresses:              buildAddresses(raw, offerID, now),
		AppliedCourses:         buildCourses(raw, offerID, now),
		Disabilities:           buildDisabilities(raw, offerID, now),
		EmergencyContact:       buildEmergencyContact(raw, offerID, now),
		EducationHistoryList:   buildEducationHistory(raw, offerID, now),
		EmploymentHistoryList:  buildEmploymentHistory(raw, offerID, now),
		LeadsMarketingCampaign: buildLeadsMarketing(raw, offerID, now),
	}

	return offer, issues
}
