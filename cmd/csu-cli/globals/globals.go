package globals

import (
	"context"
	"fmt"
	"os"

	"csuassist/internal/campus"
)

const key = "csu-cli.ctx"

type Value struct {
	Service   campus.Service
	StudentId string
	Password  string
	Json      bool
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key).(*Value)
}

// Credentials returns the configured student id and password, it exits when
// either is missing.
func (v *Value) Credentials() (string, string) {
	if v.StudentId == "" || v.Password == "" {
		fmt.Fprintln(os.Stderr, "no credentials configured, set student_id and password in csu.json5 or CSU_STUDENT_ID and CSU_PASSWORD")
		os.Exit(1)
	}
	return v.StudentId, v.Password
}
