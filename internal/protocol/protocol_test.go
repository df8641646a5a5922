package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIntent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Intent
	}{
		{"changeNickname", `{"method":"changeNickname","params":{"nickname":"spiff"}}`, ChangeNickname{Nickname: "spiff"}},
		{"kickPlayer", `{"method":"kickPlayer","params":{"discriminator":3}}`, KickPlayer{Discriminator: 3}},
		{"changeTime", `{"method":"changeTime","params":{"time":450}}`, ChangeTime{Time: 450}},
		{"updatePack", `{"method":"updatePack","params":{"id":1,"enabled":false}}`, UpdatePack{ID: 1, Enabled: false}},
		{"startGame", `{"method":"startGame","params":{}}`, StartGame{}},
		{"startGame no params", `{"method":"startGame"}`, StartGame{}},
		{"createVote", `{"method":"createVote","params":{"target":2}}`, CreateVote{Target: 2}},
		{"vote", `{"method":"vote","params":{"agreement":true}}`, Vote{Agreement: true}},
		{"guessLocation", `{"method":"guessLocation","params":{"guess":"Casino"}}`, GuessLocation{Guess: "Casino"}},
		{"playAgain", `{"method":"playAgain","params":{}}`, PlayAgain{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeIntent([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeIntentRejects(t *testing.T) {
	_, err := DecodeIntent([]byte(`{"method":"selfDestruct","params":{}}`))
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = DecodeIntent([]byte(`{"method":"vote","params":{"agreement":"yes"}}`))
	assert.Error(t, err)

	_, err = DecodeIntent([]byte(`not json`))
	assert.Error(t, err)
}

func TestValidateNickname(t *testing.T) {
	assert.Nil(t, ValidateNickname("spiff"))

	err := ValidateNickname("")
	require.NotNil(t, err)
	assert.Equal(t, MistakeNickname, err.Field)

	err = ValidateNickname("abcdefghijklmnopq") // 17 runes
	require.NotNil(t, err)
	assert.Equal(t, "Nickname too long.", err.Message)
}

func TestRoomRequestValidate(t *testing.T) {
	r := RoomRequest{Nickname: " spiff ", RoomName: " my room ", RoomPass: "pw", Create: true}
	r.Sanitize()
	assert.Equal(t, "spiff", r.Nickname)
	assert.Equal(t, "my room", r.RoomName)
	assert.Nil(t, r.Validate())

	r = RoomRequest{Nickname: "spiff", RoomName: "no_underscores", Create: true}
	err := r.Validate()
	require.NotNil(t, err)
	assert.Equal(t, MistakeRoomName, err.Field)

	r = RoomRequest{Nickname: "spiff", RoomName: "ok", RoomPass: "abcdefghijklmnopqrstu", Create: true}
	err = r.Validate()
	require.NotNil(t, err)
	assert.Equal(t, MistakePassword, err.Field)

	// Join requests only validate the nickname.
	r = RoomRequest{Nickname: "spiff", RoomName: "does not matter ___", Create: false}
	assert.Nil(t, r.Validate())
}

func TestWSQueryValidate(t *testing.T) {
	q := NewWSQuery(" abc123 ", " spiff ")
	assert.Nil(t, q.Validate())

	q = NewWSQuery("", "spiff")
	require.NotNil(t, q.Validate())

	q = NewWSQuery("abc123", "   ")
	require.NotNil(t, q.Validate())
}
