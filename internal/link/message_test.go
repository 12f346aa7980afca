package link

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/compressor-interlock/internal/logic"
)

func TestEncodeRelayExactJSON(t *testing.T) {
	payload, err := EncodeRelay(RelayCommand{Enable: true, Dryer: true, Vent: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"enable":true,"dryer":true,"drain":false,"vent":true}`, string(payload))
}

func TestEncodeSoundExactJSON(t *testing.T) {
	payload, err := EncodeSound(SoundReport{SoundLevel: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"soundlevel":true}`, string(payload))
}

func TestDecodeRelayMissingFieldsAreFalse(t *testing.T) {
	cmd, err := DecodeRelay([]byte(`{"enable":true}`))
	require.NoError(t, err)
	assert.Equal(t, RelayCommand{Enable: true}, cmd)

	cmd, err = DecodeRelay([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, RelayCommand{}, cmd)
}

func TestDecodeRelayIgnoresUnknownFields(t *testing.T) {
	cmd, err := DecodeRelay([]byte(`{"drain":true,"firmware":"1.2"}`))
	require.NoError(t, err)
	assert.Equal(t, RelayCommand{Drain: true}, cmd)
}

func TestDecodeToleratesNulTerminator(t *testing.T) {
	// The firmware sends strlen+1 bytes.
	cmd, err := DecodeRelay([]byte("{\"vent\":true}\x00"))
	require.NoError(t, err)
	assert.True(t, cmd.Vent)

	rep, err := DecodeSound([]byte("{\"soundlevel\":false}\x00\x00"))
	require.NoError(t, err)
	assert.False(t, rep.SoundLevel)
}

func TestDecodeSoundNumericValues(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{`{"soundlevel":1}`, true},
		{`{"soundlevel":0}`, false},
		{`{"soundlevel":512}`, true},
		{`{"soundlevel":null}`, false},
		{`{"soundlevel":true}`, true},
		{`{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			rep, err := DecodeSound([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rep.SoundLevel)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeRelay(nil)
	assert.True(t, errors.Is(err, ErrEmptyPayload))

	_, err = DecodeRelay([]byte("\x00"))
	assert.True(t, errors.Is(err, ErrEmptyPayload))

	_, err = DecodeRelay([]byte(`{"enable":`))
	assert.Error(t, err)

	_, err = DecodeSound([]byte(`{"soundlevel":"loud"}`))
	assert.Error(t, err)
}

func TestCommandOutputsConversion(t *testing.T) {
	out := logic.Outputs{Enable: true, Drain: true}
	cmd := CommandFromOutputs(out)
	assert.Equal(t, RelayCommand{Enable: true, Drain: true}, cmd)
	assert.Equal(t, out, cmd.Outputs())
}
