package journal

import "context"

func Events(ctx context.Context, j Journal, campaign uint32) ([]Event, error) {
	return j.events(ctx, campaign)
}

// BufferedCampaigns lists the campaigns of the events waiting for a flush
func BufferedCampaigns(r Repository) []uint32 {
	repo := r.(*repository)
	repo.mu.Lock()
	defer repo.mu.Unlock()

	campaigns := make([]uint32, 0, len(repo.buffer))
	for _, event := range repo.buffer {
		campaigns = append(campaigns, event.Campaign)
	}

	return campaigns
}

// BreakStorage closes the database under the repository so flushes fail
func BreakStorage(r Repository) error {
	return r.(*repository).db.Close()
}
