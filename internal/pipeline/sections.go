package pipeline

import (
	"time"

	"studentoffer/internal"
	"studentoffer/internal/util"
)

type studentInfo struct {
	Title         string `raw:"title" default:"Mr"`
	FirstName     string `raw:"first_name" default:"First"`
	MiddleName    string `raw:"middle_name"`
	LastName      string `raw:"last_name" default:"Last"`
	Gender        string `raw:"gender" default:"M"`
	DoB           string `raw:"dob" coerce:"date" default:"1990-01-01"`
	Email         string `raw:"email" default:"student@example.com"`
	StudentOrigin string `raw:"student_origin" default:"OverseasStudent"`
}

type visaInfo struct {
	VisaType       string `raw:"visa_type" coerce:"visa_type"`
	VisaNumber     string `raw:"visa_number"`
	VisaExpiryDate string `raw:"visa_expiry_date" coerce:"timestamp,optional"`
}

func buildStudent(raw map[string]any, now time.Time) studentInfo {
	var s studentInfo
	fillSection(&s, section(raw, "student_info"), "", now)
	return s
}

func buildCompliance(raw map[string]any, offerID string, origin StudentOrigin, now time.Time) internal.Compliance {
	src := section(raw, "compliance")
	var c internal.Compliance
	fillSection(&c, src, offerID, now)
	if origin.IsOverseas() {
		var v visaInfo
		fillSection(&v, src, offerID, now)
		c.VisaType = util.StringPtr(v.VisaType)
		c.VisaNumber = util.StringPtr(v.VisaNumber)
		c.VisaExpiryDate = util.StringPtr(v.VisaExpiryDate)
	}
	return c
}

func buildAddresses(raw map[string]any, offerID string, now time.Time) []internal.Address {
	out := fillRecords[internal.Address](sequence(raw, "addresses"), offerID, now)
	if len(out) == 0 {
		var placeholder internal.Address
		fillSection(&placeholder, map[string]any{}, offerID, now)
		placeholder.FlatUnitDetail = "Unit 1"
		out = append(out, placeholder)
	}
	return out
}

func buildCourses(raw map[string]any, offerID string, now time.Time) []internal.AppliedCourse {
	out := fillRecords[internal.AppliedCourse](sequence(raw, "applied_courses"), offerID, now)
	if len(out) == 0 {
		var placeholder internal.AppliedCourse
		fillSection(&placeholder, map[string]any{}, offerID, now)
		out = append(out, placeholder)
	}
	return out
}

func buildDisabilities(raw map[string]any, offerID string, now time.Time) []internal.Disability {
	return fillRecords[internal.Disability](sequence(raw, "disabilities"), offerID, now)
}

func buildEducationHistory(raw map[string]any, offerID string, now time.Time) []internal.EducationHistory {
	return fillRecords[internal.EducationHistory](sequence(raw, "education_history"), offerID, now)
}

func buildEmploymentHistory(raw map[string]any, offerID string, now time.Time) []internal.EmploymentHistory {
	return fillRecords[internal.EmploymentHistory](sequence(raw, "employment_history"), offerID, now)
}

func buildEmergencyContact(raw map[string]any, offerID string, now time.Time) internal.EmergencyContact {
	var e internal.EmergencyContact
	fillSection(&e, section(raw, "emergency_contact"), offerID, now)
	return e
}

func buildLeadsMarketing(raw map[string]any, offerID string, now time.Time) internal.LeadsMarketing {
	var l internal.LeadsMarketing
	fillSection(&l, section(raw, "leads_marketing"), offerID, now)
	return l
}
