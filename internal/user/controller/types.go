package controller

import "codebattle/internal/user/model"

type LeaderboardResponse struct {
	Items []model.LeaderboardEntry `json:"items"`
	Total int64                    `json:"total"`
}
