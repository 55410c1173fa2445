package sso

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const loginPageFixture = `<html><body>
<form id="pwdFromId" method="post" action="/authserver/login">
	<input type="text" id="username" name="username"/>
	<input type="password" id="password" name="password"/>
	<input type="hidden" name="lt" value=" LT-123-abc "/>
	<input type="hidden" name="cllt" value="userNameLogin"/>
	<input type="hidden" name="dllt" value="generalLogin"/>
	<input type="hidden" name="execution" value="e1s1-token"/>
	<input type="hidden" name="_eventId" value="submit"/>
	<input type="hidden" id="pwdEncryptSalt" value="rjBFAaHsNkKAhpoi"/>
</form>
</body></html>`

func TestParseLoginForm(t *testing.T) {
	form, missing, err := ParseLoginForm([]byte(loginPageFixture))
	require.NoError(t, err)
	require.Empty(t, missing)

	expected := LoginForm{
		Lt:        "LT-123-abc",
		Execution: "e1s1-token",
		EventId:   "submit",
		Cllt:      "userNameLogin",
		Dllt:      "generalLogin",
		Salt:      "rjBFAaHsNkKAhpoi",
	}
	if diff := cmp.Diff(expected, form); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseLoginFormDefaults(t *testing.T) {
	page := `<form>
		<input name="execution" value="abc"/>
		<input id="pwdEncryptSalt" value="rjBFAaHsNkKAhpoi"/>
		<input name="cllt" value="qrLogin"/>
	</form>`
	form, missing, err := ParseLoginForm([]byte(page))
	require.NoError(t, err)
	require.Empty(t, missing)
	require.Equal(t, "", form.Lt)
	require.Equal(t, "submit", form.EventId)
	require.Equal(t, "userNameLogin", form.Cllt)
	require.Equal(t, "generalLogin", form.Dllt)
}

func TestParseLoginFormMissing(t *testing.T) {
	testCases := []struct {
		name    string
		remove  string
		missing []string
	}{
		{name: "salt", remove: `<input type="hidden" id="pwdEncryptSalt" value="rjBFAaHsNkKAhpoi"/>`, missing: []string{"pwdEncryptSalt"}},
		{name: "execution", remove: `<input type="hidden" name="execution" value="e1s1-token"/>`, missing: []string{"execution"}},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			page := strings.Replace(loginPageFixture, test.remove, "", 1)
			_, missing, err := ParseLoginForm([]byte(page))
			require.NoError(t, err)
			require.Equal(t, test.missing, missing)
		})
	}
}

func TestLoginFormValues(t *testing.T) {
	form, _, err := ParseLoginForm([]byte(loginPageFixture))
	require.NoError(t, err)

	values := form.Values("8208210000", "ENCRYPTED")
	require.Equal(t, "8208210000", values.Get("username"))
	require.Equal(t, "ENCRYPTED", values.Get("password"))
	require.True(t, values.Has("passwordText"))
	require.Equal(t, "", values.Get("passwordText"))
	require.Equal(t, "LT-123-abc", values.Get("lt"))
	require.Equal(t, "e1s1-token", values.Get("execution"))
	require.Equal(t, "submit", values.Get("_eventId"))
	require.Equal(t, "userNameLogin", values.Get("cllt"))
	require.Equal(t, "generalLogin", values.Get("dllt"))
}
