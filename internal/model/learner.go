package model

import "time"

// Learner is a registered assessment participant. PeerOptIn gates
// inclusion in peer calibration aggregates; it is explicit consent,
// default false.
type Learner struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	DisplayName  string    `json:"displayName" bson:"displayName"`
	PeerOptIn    bool      `json:"peerOptIn" bson:"peerOptIn"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt" bson:"lastActiveAt"`
}
