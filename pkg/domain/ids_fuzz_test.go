package domain

import (
	"encoding/json"
	"testing"
)

// FuzzUserRefUnmarshal checks that decoding arbitrary reference payloads never
// panics and that a decoded string reference round-trips.
func FuzzUserRefUnmarshal(f *testing.F) {
	f.Add(`"u1"`)
	f.Add(`null`)
	f.Add(`{"_id":"u1","name":"Ada"}`)
	f.Add(`{"id":"u2"}`)
	f.Add(`""`)
	f.Add(`[1,2]`)

	f.Fuzz(func(t *testing.T, input string) {
		var ref UserRef
		if err := json.Unmarshal([]byte(input), &ref); err != nil {
			return
		}
		if ref.User != nil && ref.User.ID != ref.ID {
			t.Fatalf("populated ref id %q differs from user id %q", ref.ID, ref.User.ID)
		}
		out, err := json.Marshal(ref)
		if err != nil {
			t.Fatalf("marshal decoded ref: %v", err)
		}
		var again UserRef
		if err := json.Unmarshal(out, &again); err != nil {
			t.Fatalf("re-decode %s: %v", out, err)
		}
		if again.ID != ref.ID {
			t.Fatalf("round trip changed id %q to %q", ref.ID, again.ID)
		}
	})
}

// FuzzDateUnmarshal checks that date decoding never panics and that accepted
// dates survive a round trip.
func FuzzDateUnmarshal(f *testing.F) {
	f.Add(`"30-10-2025"`)
	f.Add(`"2025-10-30"`)
	f.Add(`"2025-10-30T00:00:00.000Z"`)
	f.Add(`null`)
	f.Add(`"31-02-2025"`)

	f.Fuzz(func(t *testing.T, input string) {
		var d Date
		if err := json.Unmarshal([]byte(input), &d); err != nil {
			return
		}
		out, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("marshal decoded date: %v", err)
		}
		var again Date
		if err := json.Unmarshal(out, &again); err != nil {
			t.Fatalf("re-decode %s: %v", out, err)
		}
		if again != d {
			t.Fatalf("round trip changed %v to %v", d, again)
		}
	})
}
