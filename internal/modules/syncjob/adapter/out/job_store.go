package out

import (
	"context"

	"outcomes/internal/modules/syncjob/domain"
	syncjobout "outcomes/internal/modules/syncjob/port/out"
	"outcomes/internal/platform/kv"
)

const JobKey = "sync_job"

type KVJobStore struct {
	kv *kv.FileStore
}

func NewKVJobStore(store *kv.FileStore) syncjobout.JobStore {
	return &KVJobStore{kv: store}
}

func (s *KVJobStore) Load(ctx context.Context) (domain.Job, error) {
	job := domain.Job{}
	if err := s.kv.Get(ctx, JobKey, &job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

func (s *KVJobStore) Save(ctx context.Context, job domain.Job) error {
	return s.kv.Put(ctx, JobKey, job)
}

func (s *KVJobStore) Delete(ctx context.Context) error {
	return s.kv.Delete(ctx, JobKey)
}
