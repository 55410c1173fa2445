package sso

import (
	"log/slog"
	"strings"

	"github.com/awnumar/memguard"
)

// Credential is a student id and password supplied for a single call. The
// password is sealed in memory and only opened while the login form is built.
type Credential struct {
	StudentId string
	password  *memguard.Enclave
}

func NewCredential(studentId, password string) Credential {
	// NewEnclave wipes its input and returns nil for an empty buffer.
	return Credential{
		StudentId: studentId,
		password:  memguard.NewEnclave([]byte(password)),
	}
}

// Password opens the enclave and returns a copy of the password.
func (c Credential) Password() (string, error) {
	if c.password == nil {
		return "", nil
	}
	buf, err := c.password.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}

// LogValue keeps the password out of logs and masks the middle of the id.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("student_id", MaskSensitive(c.StudentId)),
		slog.Bool("has_password", c.password != nil),
	)
}

// MaskSensitive keeps the first and last two characters of a value.
func MaskSensitive(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
