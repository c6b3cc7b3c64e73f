package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	FileName  string   `json:"fileName" validate:"required,max=10"`
	FileSize  int64    `json:"fileSize" validate:"required,min=1"`
	Qualities []string `json:"qualities" validate:"omitempty,dive,oneof=720p 360p"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(&sampleRequest{FileName: "a.mp4", FileSize: 1, Qualities: []string{"720p"}}))

	err := ValidateStruct(&sampleRequest{FileName: "this-name-is-too-long.mp4", Qualities: []string{"4k"}})
	require.Error(t, err)

	fields := map[string]string{}
	for _, fe := range GetValidationErrors(err) {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "must be at most 10 characters", fields["fileName"])
	assert.Equal(t, "is required", fields["fileSize"])
	assert.Equal(t, "must be one of: 720p 360p", fields["qualities[0]"])
}
