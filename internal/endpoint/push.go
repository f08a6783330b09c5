package endpoint

import (
	"sort"
	"sync"
)

// PushRouter is the coordinator-side mapping(model_uid -> push_endpoint)
// of §4.3: in bus mode the first send to a new model lazily opens its
// per-model push channel; a broadcast (Notify with no target channel)
// iterates the mapping.
type PushRouter struct {
	mu    sync.Mutex
	peers map[uint32]*Endpoint
	open  func(modelUID uint32) (*Endpoint, error)
}

func NewPushRouter(open func(modelUID uint32) (*Endpoint, error)) *PushRouter {
	return &PushRouter{peers: make(map[uint32]*Endpoint), open: open}
}

// Get returns the push endpoint for modelUID, opening it on first use.
func (p *PushRouter) Get(modelUID uint32) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ep, ok := p.peers[modelUID]; ok {
		return ep, nil
	}
	ep, err := p.open(modelUID)
	if err != nil {
		return nil, err
	}
	p.peers[modelUID] = ep
	return ep, nil
}

// Remove drops a model's push endpoint, e.g. on ModelExit.
func (p *PushRouter) Remove(modelUID uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.peers, modelUID)
}

// Broadcast calls send for every currently-open peer, in ascending
// model_uid order (deterministic iteration, matching §5's "ModelStart
// broadcast is sequential").
func (p *PushRouter) Broadcast(send func(modelUID uint32, ep *Endpoint) error) error {
	p.mu.Lock()
	uids := make([]uint32, 0, len(p.peers))
	for uid := range p.peers {
		uids = append(uids, uid)
	}
	peers := make(map[uint32]*Endpoint, len(p.peers))
	for k, v := range p.peers {
		peers[k] = v
	}
	p.mu.Unlock()

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	for _, uid := range uids {
		if err := send(uid, peers[uid]); err != nil {
			return err
		}
	}
	return nil
}
