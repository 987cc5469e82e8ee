package pipeline

import (
	"regexp"
	"strings"

	"studentoffer/internal/util"
)

type Title string

const (
	TitleMr        Title = "Mr"
	TitleMs        Title = "Ms"
	TitleMrs       Title = "Mrs"
	TitleMiss      Title = "Miss"
	TitleDr        Title = "Dr"
	TitleRev       Title = "Rev"
	TitleHon       Title = "Hon"
	TitleUndefined Title = "Undefined"
)

var titles = []Title{TitleMr, TitleMs, TitleMrs, TitleMiss, TitleDr, TitleRev, TitleHon, TitleUndefined}

// ParseTitle accepts only an exact member of the allowed titles. Anything
// else is TitleMr and false.
func ParseTitle(raw string) (Title, bool) {
	for _, t := range titles {
		if raw == string(t) {
			return t, true
		}
	}
	return TitleMr, false
}

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// ParseGender folds the usual spellings of male and female onto M and F.
// Blank input is the silent default M; anything else is M and reported.
func ParseGender(raw string) (Gender, bool) {
	switch util.NormalizeKey(raw) {
	case "", "m", "male", "man":
		return GenderMale, true
	case "f", "female", "woman":
		return GenderFemale, true
	default:
		return GenderMale, false
	}
}

type StudentOrigin string

const (
	OriginOverseas            StudentOrigin = "OverseasStudent"
	OriginOverseasInAustralia StudentOrigin = "OverseasStudentInAustralia"
	OriginResident            StudentOrigin = "ResidentStudent"
)

var origins = []StudentOrigin{OriginOverseas, OriginOverseasInAustralia, OriginResident}

func ParseStudentOrigin(raw string) (StudentOrigin, bool) {
	for _, o := range origins {
		if raw == string(o) {
			return o, true
		}
	}
	return OriginOverseas, false
}

func (o StudentOrigin) IsOverseas() bool {
	return strings.HasPrefix(string(o), "Overseas")
}

const DefaultEmail = "student@example.com"

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func ParseEmail(raw string) (string, bool) {
	if emailPattern.MatchString(raw) {
		return raw, true
	}
	return DefaultEmail, false
}

func NormalizeVisaType(raw string) string {
	t := util.NormalizeKey(raw)
	switch {
	case t == "":
		return "Other"
	case util.ContainsAny(t, "tour", "visitor"):
		return "Tourist/Visitor"
	case strings.Contains(t, "holiday"):
		return "Working Holiday"
	case strings.Contains(t, "student"):
		return "Student Visa"
	default:
		return "Other"
	}
}

var chineseSynonyms = map[string]struct{}{
	"chinese":          {},
	"mandarin":         {},
	"mandarin chinese": {},
	"putonghua":        {},
	"zh":               {},
	"zh-cn":            {},
	"zh_cn":            {},
	"zh-hans":          {},
	"中文":               {},
	"汉语":               {},
	"普通话":              {},
}

// NormalizeLanguage canonicalises Chinese synonyms to Mandarin; other values
// pass through trimmed.
func NormalizeLanguage(raw string) string {
	t := util.NormalizeKey(raw)
	if t == "" {
		return "Mandarin"
	}
	if _, ok := chineseSynonyms[t]; ok {
		return "Mandarin"
	}
	return strings.TrimSpace(raw)
}
