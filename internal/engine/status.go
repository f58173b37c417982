package engine

import "fmt"

// StatusReply is the engine's self-reported health snapshot, produced
// transiently per status query.
type StatusReply struct {
	Running     bool    // whether the synthesis server is running
	NumGroups   int     // number of groups on the server
	NumSynths   int     // number of synths currently running
	NumUgens    int     // number of unit generators currently in use
	AvgCPU      float64 // average CPU usage (fraction)
	PeakCPU     float64 // peak CPU usage (fraction)
	Load        float64 // server load (fraction)
	NominalRate float64 // nominal audio sample rate
	ActualRate  float64 // actual audio sample rate

	// SchedLatency is only present on protocol variants that report a
	// tenth field; HasSchedLatency distinguishes zero from absent.
	SchedLatency    float64
	HasSchedLatency bool
}

// statusReplyMinFields is the baseline /status.reply arity. Newer
// protocol variants append a scheduling latency field; anything past
// the tenth field is ignored.
const statusReplyMinFields = 9

func parseStatusReply(args []interface{}) (*StatusReply, error) {
	if len(args) < statusReplyMinFields {
		return nil, fmt.Errorf("status reply has %d fields, want at least %d", len(args), statusReplyMinFields)
	}

	fields := make([]float64, len(args))
	for i, a := range args {
		f, ok := asFloat(a)
		if !ok {
			return nil, fmt.Errorf("status reply field %d has type %T, want numeric", i, a)
		}
		fields[i] = f
	}

	// Counts may arrive as floats: some OSC encoders flatten mixed
	// int/float argument arrays to all-float, so integral fields are
	// coerced rather than type-asserted.
	st := &StatusReply{
		Running:     fields[0] != 0,
		NumGroups:   int(fields[1]),
		NumSynths:   int(fields[2]),
		NumUgens:    int(fields[3]),
		AvgCPU:      fields[4],
		PeakCPU:     fields[5],
		Load:        fields[6],
		NominalRate: fields[7],
		ActualRate:  fields[8],
	}
	if len(fields) > statusReplyMinFields {
		st.SchedLatency = fields[statusReplyMinFields]
		st.HasSchedLatency = true
	}
	return st, nil
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
