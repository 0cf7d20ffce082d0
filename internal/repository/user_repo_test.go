package repository

import (
	"testing"

	"github.com/fathima-sithara/user-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestChallengeFieldsCoverAllKinds(t *testing.T) {
	kinds := []models.ChallengeKind{
		models.ChallengeEmailOTP,
		models.ChallengePhoneOTP,
		models.ChallengeEmailToken,
		models.ChallengePasswordReset,
	}
	for _, kind := range kinds {
		fields, ok := challengeFields[kind]
		assert.True(t, ok, "kind %q has no field mapping", kind)
		assert.NotEmpty(t, fields[0])
		assert.NotEmpty(t, fields[1])
	}
	assert.Len(t, challengeFields, len(kinds))
}
