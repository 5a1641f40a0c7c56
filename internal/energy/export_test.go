package energy

// SetNextID moves the ID counter, used to exercise wraparound
func (s *Store) SetNextID(id CampaignID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = id
}

var SaturatingSub = saturatingSub
