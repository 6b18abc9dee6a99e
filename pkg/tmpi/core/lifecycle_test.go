package core

import "testing"

func TestGetNFromArgs(t *testing.T) {
	cases := []struct {
		args []string
		def  int
		want int
	}{
		{[]string{"prog", "-np", "6"}, 4, 6},
		{[]string{"prog", "-np=9"}, 4, 9},
		{[]string{"prog"}, 4, 4},
		{[]string{"prog", "-np", "nope"}, 4, 4},
		{[]string{"prog", "-np", "-1"}, 4, 4},
	}
	for _, c := range cases {
		got := GetNFromArgs(c.args, c.def)
		if got != c.want {
			t.Errorf("GetNFromArgs(%v, %d) = %d, want %d", c.args, c.def, got, c.want)
		}
	}
}

func TestInitN_RunsEveryWorkerAndFinalizes(t *testing.T) {
	const n = 3
	seen := make([]bool, n)

	err := InitN(n, nil, nil, func(self *Self) {
		seen[self.Rank()] = true
		if self.Size() != n {
			t.Errorf("Size() = %d, want %d", self.Size(), n)
		}
		Finalize(self)
	})
	if err != nil {
		t.Fatalf("InitN returned error: %v", err)
	}
	for i, ok := range seen {
		if !ok {
			t.Errorf("worker %d's function never ran", i)
		}
	}
	if !Finalized() {
		t.Errorf("Finalized() = false after every worker called Finalize")
	}
}

func TestInitN_RejectsNonPositiveCount(t *testing.T) {
	err := InitN(0, nil, nil, func(self *Self) {})
	if err == nil {
		t.Errorf("InitN(0, ...) should fail")
	}
}
