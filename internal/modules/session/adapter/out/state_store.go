package out

import (
	"context"
	"fmt"

	"outcomes/internal/modules/session/domain"
	sessionout "outcomes/internal/modules/session/port/out"
	"outcomes/internal/platform/kv"
)

const StateKey = "session_state"

type KVStateStore struct {
	kv *kv.FileStore
}

func NewKVStateStore(store *kv.FileStore) sessionout.StateStore {
	return &KVStateStore{kv: store}
}

func (s *KVStateStore) Load(ctx context.Context) (domain.State, error) {
	st := domain.State{}
	if err := s.kv.Get(ctx, StateKey, &st); err != nil {
		return domain.State{}, err
	}
	if err := st.Type.Validate(); err != nil {
		return domain.State{}, fmt.Errorf("decode session state: %w", err)
	}
	return st, nil
}

func (s *KVStateStore) Save(ctx context.Context, state domain.State) error {
	return s.kv.Put(ctx, StateKey, state)
}
