package emitter

import "testing"

func TestTracepointName(t *testing.T) {
	tests := []struct {
 provider string
 level uint8
 keyword uint64
 group string
 want string
	}{
 {"MyProvider", 2, 1, "", "MyProvider_L2K1"},
 {"MyProvider", 5, 0x3ff, "", "MyProvider_L5K3ff"},
 {"MyProvider", 5, 0x3ff, "mygroup", "MyProvider_L5K3ffGmygroup"},
	}
	for _, tt := range tests {
 if got := TracepointName(tt.provider, tt.level, tt.keyword, tt.group); got != tt.want {
 t.Errorf("TracepointName(%q, %d, %#x, %q) = %q, want %q",
 tt.provider, tt.level, tt.keyword, tt.group, got, tt.want)
 }
	}
}

func TestBuildDefinition(t *testing.T) {
	got := BuildDefinition("MyProvider_L2K1")
	want := "MyProvider_L2K1 u8 eventheader_flags;u8 version;u16 id;u16 tag;u8 opcode;u8 level"
	if got != want {
 t.Fatalf("BuildDefinition = %q, want %q", got, want)
	}
}

func TestWriteNoListenerIsNoop(t *testing.T) {
	p := &Provider{name: "test", tracepoints: make(map[string]*Tracepoint)}
	tp := &Tracepoint{name: "ev", writeIndex: 0, statusBit: 3}
	statusPage := make([]byte, 4) // bit 3 clear: nobody listening

	if err := p.Write(tp, statusPage, []byte("payload")); err != nil {
 t.Fatalf("Write with no listener should be a silent no-op, got %v", err)
	}
}

func TestConnectReusesExistingTracepoint(t *testing.T) {
	p := &Provider{name: "test", tracepoints: make(map[string]*Tracepoint)}
	want := &Tracepoint{name: "ev", writeIndex: 7, statusBit: 2}
	p.tracepoints["ev"] = want

	got, err := p.Connect("ev", "ev u32 field1")
	if err != nil {
 t.Fatalf("Connect: %v", err)
	}
	if got != want {
 t.Fatalf("Connect did not return the cached Tracepoint for an already-registered name")
	}
}
