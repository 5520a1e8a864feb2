package symbol

import "testing"

func TestRegisterAllAndLookup(t *testing.T) {
	r := NewRegistry(16)
	names := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "DOGEUSDT"}
	if err := r.RegisterAll(names); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}

	for i, name := range names {
		got := r.FromBytes([]byte(name))
		if got != Symbol(i) {
			t.Errorf("FromBytes(%q) = %d, want %d", name, got, i)
		}
	}

	if got := r.FromBytes([]byte("NOPEUSDT")); got != Unknown {
		t.Errorf("FromBytes(unregistered) = %d, want Unknown", got)
	}
}

func TestFromBytesBeforeRegisterAll(t *testing.T) {
	r := NewRegistry(16)
	if got := r.FromBytes([]byte("BTCUSDT")); got != Unknown {
		t.Errorf("expected Unknown before RegisterAll, got %d", got)
	}
}

func TestRegisterAllTwicePanics(t *testing.T) {
	r := NewRegistry(16)
	if err := r.RegisterAll([]string{"BTCUSDT"}); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic calling RegisterAll twice")
		}
	}()
	r.RegisterAll([]string{"ETHUSDT"})
}

func TestRegisterAllRejectsDuplicates(t *testing.T) {
	r := NewRegistry(16)
	if err := r.RegisterAll([]string{"BTCUSDT", "BTCUSDT"}); err == nil {
		t.Error("expected error on duplicate name")
	}
}

func TestRegisterAllRejectsOverCapacity(t *testing.T) {
	r := NewRegistry(2)
	if err := r.RegisterAll([]string{"AAA", "BBB", "CCC"}); err == nil {
		t.Error("expected capacity exceeded error")
	}
}

func TestNameAndDisplayName(t *testing.T) {
	r := NewRegistry(16)
	if err := r.RegisterAll([]string{"BTCUSDT"}); err != nil {
		t.Fatal(err)
	}

	name, ok := r.Name(Symbol(0))
	if !ok || name != "BTCUSDT" {
		t.Errorf("Name(0) = %q, %v", name, ok)
	}

	if _, ok := r.Name(Unknown); ok {
		t.Error("Name(Unknown) should not be ok")
	}

	dn, ok := r.DisplayName(Symbol(0), "secondary")
	if !ok || dn != "BTCUSDT" {
		t.Errorf("expected fallback to canonical name, got %q", dn)
	}

	if err := r.SetDisplayName(Symbol(0), "secondary", "BTC-USDT"); err != nil {
		t.Fatal(err)
	}
	dn, ok = r.DisplayName(Symbol(0), "secondary")
	if !ok || dn != "BTC-USDT" {
		t.Errorf("expected override, got %q", dn)
	}
}

func TestFromBytesDeterminism(t *testing.T) {
	r := NewRegistry(64)
	names := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		names = append(names, string(rune('A'+i%26))+"SYM"+string(rune('0'+i%10)))
	}
	if err := r.RegisterAll(names); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	for i, name := range names {
		if got := r.FromBytes([]byte(name)); got != Symbol(i) {
			t.Errorf("FromBytes(%q) = %d, want %d", name, got, i)
		}
	}
}
