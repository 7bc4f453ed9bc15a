package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr error
	}{
		{name: "valid", user: User{ID: 1, Name: "Ada", Email: "ada@example.com"}},
		{name: "zero id", user: User{ID: 0, Email: "ada@example.com"}, wantErr: ErrInvalidID},
		{name: "missing at", user: User{ID: 1, Email: "ada.example.com"}, wantErr: ErrInvalidEmail},
		{name: "empty local part", user: User{ID: 1, Email: "@example.com"}, wantErr: ErrInvalidEmail},
		{name: "domain without dot", user: User{ID: 1, Email: "ada@example"}, wantErr: ErrInvalidEmail},
		{name: "trailing dot", user: User{ID: 1, Email: "ada@example."}, wantErr: ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
