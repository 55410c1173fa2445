// Package assert holds constructor-time invariant checks, a failed check is a
// programming error so it panics instead of returning.
package assert

import "fmt"

func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("%s: expected value to be not nil", name))
	}
}

func NotEmptyStr(str string, name string) {
	if str == "" {
		panic(fmt.Sprintf("%s: expected string to be non-empty", name))
	}
}
