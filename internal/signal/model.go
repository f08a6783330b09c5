package signal

// Model is one AdapterModel (§3): a model instance's channels, keyed by
// name, plus the derived channels_keys order used for deterministic
// iteration (registration order, channel creation order).
type Model struct {
	UID      uint32
	ModelUID string // configured or generated model_uid (idgen.ModelUID)
	Time     float64
	StopTime float64

	channels     map[string]*Channel
	channelOrder []string
}

func NewModel(modelUID string) *Model {
	return &Model{ModelUID: modelUID, channels: make(map[string]*Channel)}
}

// Channel returns the named channel, creating it if this is the first
// reference (mirrors the adapter state machine registering one channel at
// a time during REGISTERING/INDEXING).
func (m *Model) Channel(name string) *Channel {
	if ch, ok := m.channels[name]; ok {
		return ch
	}
	ch := NewChannel(name)
	m.channels[name] = ch
	m.channelOrder = append(m.channelOrder, name)
	return ch
}

func (m *Model) Channels() []*Channel {
	out := make([]*Channel, len(m.channelOrder))
	for i, name := range m.channelOrder {
		out[i] = m.channels[name]
	}
	return out
}

func (m *Model) ChannelNames() []string { return m.channelOrder }

func (m *Model) HasChannel(name string) bool {
	_, ok := m.channels[name]
	return ok
}
