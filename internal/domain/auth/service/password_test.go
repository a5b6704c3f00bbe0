package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/common"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("correct horse 1")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse 1", hash)

	assert.True(t, ComparePassword(hash, "correct horse 1"))
	assert.False(t, ComparePassword(hash, "wrong horse 1"))
	assert.False(t, ComparePassword("", "correct horse 1"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "sup3rsecret", false},
		{"valid with symbols", "pa55word!#", false},
		{"too short", "ab1", true},
		{"no digit", "justletters", true},
		{"no letter", "1234567890", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrWeakPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
