package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// UserCount pairs a user with a record count
type UserCount struct {
	UserID primitive.ObjectID `bson:"_id" json:"userId"`
	Count  int64              `bson:"count" json:"count"`
}

// ContributorStat holds the review figures behind a contributor score
type ContributorStat struct {
	UserID          primitive.ObjectID `bson:"_id" json:"userId"`
	ApprovedReviews int64              `bson:"approvedReviews" json:"approvedReviews"`
	HelpfulVotes    int64              `bson:"helpfulVotes" json:"helpfulVotes"`
}

// UserModelUsage is how often one user used each model
type UserModelUsage struct {
	UserID primitive.ObjectID `json:"userId"`
	Counts map[string]int64   `json:"counts"`
}
