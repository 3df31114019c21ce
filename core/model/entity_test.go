package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityRef(t *testing.T) {
	cases := []struct {
		in   string
		want EntityRef
	}{
		{"DE*GEF*E1234", EVSE("DE*GEF", "1234")},
		{"DE*GEF*S12", Station("DE*GEF", "12")},
		{"DE*GEF*P1", Pool("DE*GEF", "1")},
	}
	for _, c := range cases {
		got, err := ParseEntityRef(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got)
		assert.Equal(t, c.in, got.String())
		assert.Equal(t, OperatorID("DE*GEF"), got.Operator)
	}
}

func TestParseEntityRefInvalid(t *testing.T) {
	for _, in := range []string{"", "DEGEF", "*E1", "DE*GEF*", "DE*GEF*X1"} {
		_, err := ParseEntityRef(in)
		assert.ErrorIs(t, err, ErrInvalidEntityRef, in)
	}
}

func TestEntityRefValidate(t *testing.T) {
	assert.NoError(t, EVSE("DE*GEF", "1").Validate())
	assert.NoError(t, OperatorRef("DE*GEF").Validate())
	assert.NoError(t, NetworkRef("net").Validate())
	assert.Error(t, EVSE("", "1").Validate())
	assert.Error(t, EntityRef{}.Validate())
	assert.False(t, OperatorRef("DE*GEF").Tier.Dispatchable())
}

func TestEntityRefText(t *testing.T) {
	var r EntityRef
	require.NoError(t, r.UnmarshalText([]byte("DE*GEF*E7")))
	b, err := r.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DE*GEF*E7", string(b))
}

func TestResultCodeString(t *testing.T) {
	assert.Equal(t, "unknown_reservation_id", ResultUnknownReservationID.String())
	assert.True(t, ResultUnknownStation.UnknownTarget())
	assert.False(t, ResultNotAuthorized.UnknownTarget())
}

func TestParseStatusRoundTrip(t *testing.T) {
	for st := StatusUnknown; st <= StatusOffline; st++ {
		got, ok := ParseStatus(st.String())
		if !ok || got != st {
			t.Fatalf("ParseStatus(%q) = %v, %v", st.String(), got, ok)
		}
	}
	if _, ok := ParseStatus("parked"); ok {
		t.Fatal("expected unknown name to fail")
	}
	for st := AdminUnknown; st <= AdminBlocked; st++ {
		got, ok := ParseAdminStatus(st.String())
		if !ok || got != st {
			t.Fatalf("ParseAdminStatus(%q) = %v, %v", st.String(), got, ok)
		}
	}
}

func TestParseResultCode(t *testing.T) {
	for c := ResultUnspecified; c <= ResultError; c++ {
		got, ok := ParseResultCode(c.String())
		require.True(t, ok, c.String())
		assert.Equal(t, c, got)
	}
	_, ok := ParseResultCode("maybe")
	assert.False(t, ok)
}
