package usecase

import (
	"context"
	"time"

	"outcomes/internal/modules/syncjob/domain"
	syncjobdto "outcomes/internal/modules/syncjob/dto"
	syncjobin "outcomes/internal/modules/syncjob/port/in"
	"outcomes/internal/modules/syncjob/service"
)

type Interactor struct {
	svc *service.JobService
}

func NewInteractor(svc *service.JobService) syncjobin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Schedule(ctx context.Context, from time.Time) (syncjobdto.JobOutput, error) {
	job, err := i.svc.Schedule(ctx, from)
	if err != nil {
		return syncjobdto.JobOutput{}, err
	}
	return toJob(job, true), nil
}

func (i *Interactor) RunDue(ctx context.Context) (syncjobdto.RunOutput, error) {
	res, err := i.svc.RunDue(ctx)
	return toRun(res), err
}

func (i *Interactor) RunNow(ctx context.Context) (syncjobdto.RunOutput, error) {
	res, err := i.svc.RunNow(ctx)
	return toRun(res), err
}

func (i *Interactor) Pending(ctx context.Context) (syncjobdto.JobOutput, error) {
	job, ok, err := i.svc.Pending(ctx)
	if err != nil {
		return syncjobdto.JobOutput{}, err
	}
	return toJob(job, ok), nil
}

func toJob(job domain.Job, scheduled bool) syncjobdto.JobOutput {
	return syncjobdto.JobOutput{Scheduled: scheduled, Kind: job.Kind, DueAt: job.DueAt}
}

func toRun(res service.RunResult) syncjobdto.RunOutput {
	out := syncjobdto.RunOutput{
		Ran:          res.Ran,
		Completed:    res.Completed,
		FocusSent:    res.FocusSent,
		OutcomesSent: res.OutcomesSent,
		Remaining:    res.Remaining,
	}
	for _, err := range res.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}
