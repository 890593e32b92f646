package user

import "testing"

func TestValidatePassword(t *testing.T) {
	commonPasswords["letmein123"] = struct{}{}

	tests := []struct {
		name    string
		pwd     string
		attrs   []string
		wantErr string
	}{
		{name: "too short", pwd: "abc1", wantErr: "password is too short, must contain at least 8 characters"},
		{name: "whitespace", pwd: "abc def 123", wantErr: "password must not contain whitespace"},
		{name: "entirely numeric", pwd: "1234567890", wantErr: "password must not be entirely numeric"},
		{name: "too common", pwd: "LetMeIn123", wantErr: "password is too common"},
		{
			name:    "similar to username",
			pwd:     "johndoe99",
			attrs:   []string{"johndoe9", "john@test.test"},
			wantErr: "password is too similar to your personal information",
		},
		{name: "valid", pwd: "g0od&Uniqu3", attrs: []string{"johndoe", "john@test.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.pwd, tt.attrs...)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validatePassword() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("validatePassword() expected an error")
			}
			got := fieldErrorText(t, err)
			if got != tt.wantErr {
				t.Errorf("validatePassword() = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func fieldErrorText(t *testing.T, err error) string {
	t.Helper()
	vErr, ok := err.(interface{ FieldErrors() map[string]string })
	if !ok {
		t.Fatalf("unexpected error type %T", err)
	}
	return vErr.FieldErrors()["password"]
}
