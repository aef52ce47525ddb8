package economy

import "guild-ledger/internal/config"

type Job struct {
	ID          string
	Name        string
	MinPay      int64
	MaxPay      int64
	SuccessRate float64
}

func jobsFromConfig(cfgs []config.JobConfig) []Job {
	jobs := make([]Job, 0, len(cfgs))
	for _, c := range cfgs {
		jobs = append(jobs, Job{ID: c.ID, Name: c.Name, MinPay: c.MinPay, MaxPay: c.MaxPay, SuccessRate: c.SuccessRate})
	}
	return jobs
}

// Jobs lists the job catalog in configuration order.
func (s *Service) Jobs() []Job {
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

func (s *Service) findJob(id string) (Job, bool) {
	if id == "" {
		return Job{}, false
	}
	for _, job := range s.jobs {
		if job.ID == id {
			return job, true
		}
	}
	return Job{}, false
}

// resolveJob picks the explicit job when it exists, then the member's
// current job, then a uniformly random one.
func (s *Service) resolveJob(explicit, current string) Job {
	if job, ok := s.findJob(explicit); ok {
		return job
	}
	if job, ok := s.findJob(current); ok {
		return job
	}
	return s.jobs[s.rng.Intn(len(s.jobs))]
}
