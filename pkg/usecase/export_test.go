package usecase

// RankMatches exposes rankMatches for tests
var RankMatches = rankMatches
