package exec

import "github.com/0xfe/buddyx/internal/tmuxproto"

func toTmuxCaptureOpts(o CapturePaneOptions) tmuxproto.CaptureOptions {
	return tmuxproto.CaptureOptions{
		StartLine:              o.StartLine,
		EndLine:                o.EndLine,
		JoinWrapped:            o.JoinWrapped,
		PreserveTrailingSpaces: o.PreserveTrailingSpaces,
		IncludeEscapeSequences: o.IncludeEscapeSequences,
		EscapeNonPrintable:     o.EscapeNonPrintable,
		IncludeAlternateScreen: o.IncludeAlternateScreen,
	}
}

func toTmuxSendKeysOpts(o SendKeysOptions) tmuxproto.SendKeysOptions {
	return tmuxproto.SendKeysOptions{
		LiteralText: o.LiteralText,
		Keys:        o.Keys,
		Enter:       o.Enter,
		PreDelay:    o.PreDelay,
	}
}

func toTmuxWait(w Wait) tmuxproto.Wait {
	mode := tmuxproto.WaitBlock
	switch w.Mode {
	case WaitNone:
		mode = tmuxproto.WaitNone
	case WaitTimeout:
		mode = tmuxproto.WaitTimeout
	}
	return tmuxproto.Wait{Mode: mode, Timeout: w.Timeout}
}
