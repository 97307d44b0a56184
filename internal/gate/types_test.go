package gate

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"OPEN", CmdOpen},
		{"open", CmdOpen},
		{"Close", CmdClose},
		{"STOP", CmdStop},
		{"TOGGLE", CmdToggle},
		{"LAMP_ON", CmdLampOn},
		{"lamp_off", CmdLampOff},
		{"", CmdNone},
		{"REBOOT", CmdNone},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q): got %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateInitial, "INITIAL"},
		{StateOpen, "OPEN"},
		{StateClosed, "CLOSED"},
		{StateOpening, "OPENING"},
		{StateClosing, "CLOSING"},
		{StateStopped, "STOPPED"},
		{StateError, "ERROR"},
		{StateUnknown, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String(): got %q, want %q", tt.s, got, tt.want)
		}
	}
}
