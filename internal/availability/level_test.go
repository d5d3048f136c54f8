package availability

import "testing"

func TestClassify(t *testing.T) {
	const dayOpen = 12 * 60 // 08:00-20:00

	cases := []struct {
		name  string
		busy  int
		total int
		want  Level
	}{
		{"no reservations", 0, dayOpen, Empty},
		{"no open hours", 0, 0, Empty},
		{"busy minutes but zero total", 120, 0, Empty},
		{"whole day reserved", dayOpen, dayOpen, VeryBusy},
		{"exactly 30 percent stays empty", 216, dayOpen, Empty},
		{"just over 30 percent", 217, dayOpen, Busy},
		{"exactly 60 percent stays busy", 432, dayOpen, Busy}, // 7.2h of 12h
		{"just over 60 percent", 433, dayOpen, VeryBusy},
		{"half reserved", 360, dayOpen, Busy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.busy, tc.total); got != tc.want {
				t.Fatalf("Classify(%d, %d) = %v, want %v", tc.busy, tc.total, got, tc.want)
			}
		})
	}
}
