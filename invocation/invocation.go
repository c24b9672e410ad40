package invocation

// Param is a key=value parameter.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Flag is a named boolean flag. Parsed flags are always Present.
type Flag struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// Invocation is one parsed command line.
//
// An Invocation handed to a command handler is only valid for the duration
// of that call. Handlers must copy what they need instead of keeping it.
type Invocation struct {
	Command string   `json:"command"`
	Params  []Param  `json:"params,omitempty"`
	Flags   []Flag   `json:"flags,omitempty"`
	Args    []string `json:"args,omitempty"`
	Raw     string   `json:"raw"`
}

// Param returns the value for key.
func (inv *Invocation) Param(key string) (string, bool) {
	if inv == nil {
		return "", false
	}
	for _, p := range inv.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// ParamOr returns the value for key, or def when it is absent.
func (inv *Invocation) ParamOr(key, def string) string {
	if v, ok := inv.Param(key); ok {
		return v
	}
	return def
}

// HasFlag reports whether the flag name was given.
func (inv *Invocation) HasFlag(name string) bool {
	if inv == nil {
		return false
	}
	for _, f := range inv.Flags {
		if f.Name == name {
			return f.Present
		}
	}
	return false
}

// GetParam is the nil-safe lookup used by handlers: it returns the value and
// whether key was present.
func GetParam(inv *Invocation, key string) (string, bool) {
	return inv.Param(key)
}

// HasFlag is the nil-safe flag check used by handlers.
func HasFlag(inv *Invocation, name string) bool {
	return inv.HasFlag(name)
}
