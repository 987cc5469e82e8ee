package pipeline

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

type InputMode string

const (
	InputContent InputMode = "content"
	InputBase64  InputMode = "base64"
	InputStdin   InputMode = "stdin"
	InputFile    InputMode = "file"
	InputQuick   InputMode = "quick"
)

type Input struct {
	Mode     InputMode
	Source   string
	Text     string
	Encoding string
	// Fixable inputs go through FixYAMLIndentation before parsing.
	Fixable bool
}

const QuickDocument = `
student_info:
  title: "Mr"
  first_name: "Test"
  last_name: "Student"
  gender: "M"
  dob: "1995-01-01"
  email: "test@example.com"
  student_origin: "OverseasStudent"
compliance:
  visa_type: "Student Visa"
addresses:
  - address_type: "Current"
    is_primary: true
applied_courses:
  - course_id: "CPC50220"
disabilities: []
emergency_contact: {}
education_history: []
employment_history: []
leads_marketing: {}
`

func LoadInput(mode InputMode, value string, stdin io.Reader) (Input, error) {
	switch mode {
	case InputContent:
		return Input{Mode: mode, Source: "inline", Text: value, Encoding: "utf-8", Fixable: true}, nil
	case InputBase64:
		blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
		if err != nil {
			return Input{}, fmt.Errorf("decode base64 document: %w", err)
		}
		decoded, err := DecodeBytes(blob)
		if err != nil {
			return Input{}, fmt.Errorf("decode base64 document: %w", err)
		}
		return Input{Mode: mode, Source: "base64", Text: decoded.Text, Encoding: decoded.Encoding, Fixable: true}, nil
	case InputStdin:
		blob, err := io.ReadAll(stdin)
		if err != nil {
			return Input{}, fmt.Errorf("read stdin: %w", err)
		}
		decoded, err := DecodeBytes(blob)
		if err != nil {
			return Input{}, fmt.Errorf("stdin: %w", err)
		}
		return Input{Mode: mode, Source: "stdin", Text: decoded.Text, Encoding: decoded.Encoding, Fixable: true}, nil
	case InputFile:
		decoded, err := ReadSource(value)
		if err != nil {
			return Input{}, err
		}
		return Input{Mode: mode, Source: value, Text: decoded.Text, Encoding: decoded.Encoding, Fixable: true}, nil
	case InputQuick:
		return Input{Mode: mode, Source: "quick", Text: QuickDocument, Encoding: "utf-8"}, nil
	default:
		return Input{}, fmt.Errorf("unsupported input mode: %s", mode)
	}
}
