package wa

import (
	"errors"
	"strings"
	"testing"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSlot(t *testing.T) {
	ref := models.SlotRef{Date: "2026-03-10", Time: "15:00", ResourceID: "master-anna"}

	token := EncodeSlot(ref)
	assert.Equal(t, "slot_2026-03-10_15:00_master-anna", token)

	sel, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, KindSlot, sel.Kind)
	assert.Equal(t, ref, sel.Slot)
}

func TestEncodeSlotDeterministic(t *testing.T) {
	ref := models.SlotRef{Date: "2026-03-10", Time: "15:00", ResourceID: "master-anna"}
	assert.Equal(t, EncodeSlot(ref), EncodeSlot(ref))
}

func TestDecodeSlotResourceWithUnderscores(t *testing.T) {
	ref := models.SlotRef{Date: "2026-03-10", Time: "09:30", ResourceID: "room_2_floor_1"}

	sel, err := Decode(EncodeSlot(ref))
	require.NoError(t, err)
	assert.Equal(t, "room_2_floor_1", sel.Slot.ResourceID)
}

func TestEncodeDecodeConfirm(t *testing.T) {
	token := EncodeConfirm("a1b2c3d4-e5f6")
	assert.Equal(t, "confirm_a1b2c3d4-e5f6", token)

	sel, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, KindConfirm, sel.Kind)
	assert.Equal(t, "a1b2c3d4-e5f6", sel.Value)
}

func TestEncodeDecodeAction(t *testing.T) {
	sel, err := Decode(EncodeAction(ActionChangeTime))
	require.NoError(t, err)
	assert.Equal(t, KindAction, sel.Kind)
	assert.Equal(t, "change_time", sel.Value)
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"unknown prefix", "pick_2026-03-10_15:00_r1"},
		{"no payload", "slot_"},
		{"missing parts", "slot_2026-03-10_15:00"},
		{"bad date", "slot_10-03-2026_15:00_r1"},
		{"bad time", "slot_2026-03-10_3pm_r1"},
		{"empty resource", "slot_2026-03-10_15:00_"},
		{"empty booking id", "confirm_"},
		{"empty action", "action_"},
		{"free text", "see you tomorrow at 3"},
		{"too long", "slot_" + strings.Repeat("x", 300)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.token)
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.True(t, errors.As(err, &decodeErr), "malformed input must yield *DecodeError, got %T", err)
			assert.NotEmpty(t, decodeErr.Reason)
		})
	}
}

func TestDecodeNeverPanics(t *testing.T) {
	inputs := []string{"", "_", "slot_", "slot____", "confirm", "action__x", "\x00\xff", "slot_\n_\t_"}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_, _ = Decode(in)
		})
	}
}
