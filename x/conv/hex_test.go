package conv

import "testing"

func TestU8Hex(t *testing.T) {
	cases := map[uint8]string{0x00: "00", 0x07: "07", 0x3C: "3C", 0xFF: "FF"}
	for n, want := range cases {
		var b [4]byte
		if got := string(U8Hex(b[:], n)); got != want {
			t.Fatalf("U8Hex(%#x) = %q, want %q", n, got, want)
		}
	}
	var short [1]byte
	if got := U8Hex(short[:], 0xAB); len(got) != 0 {
		t.Fatalf("short buffer = %q", got)
	}
}
