package energy

type nopObserver struct{}

func (nopObserver) CampaignCreated(CampaignID, *Snapshot) {}
func (nopObserver) CampaignDeleted(CampaignID, *Snapshot) {}
func (nopObserver) Swept(Sweep)                           {}

// Observers fans every event out to each member in order
type Observers []Observer

func (o Observers) CampaignCreated(id CampaignID, snapshot *Snapshot) {
	for _, observer := range o {
		observer.CampaignCreated(id, snapshot)
	}
}

func (o Observers) CampaignDeleted(id CampaignID, snapshot *Snapshot) {
	for _, observer := range o {
		observer.CampaignDeleted(id, snapshot)
	}
}

func (o Observers) Swept(sweep Sweep) {
	for _, observer := range o {
		observer.Swept(sweep)
	}
}
