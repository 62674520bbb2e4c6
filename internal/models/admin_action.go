package models

import "time"

// Admin action type tags written to the audit log.
const (
	ActionApproveUser   = "approve_user"
	ActionDenyUser      = "deny_user"
	ActionBanUser       = "ban_user"
	ActionUnbanUser     = "unban_user"
	ActionDeletePost    = "delete_post"
	ActionReportPost    = "report_post"
	ActionDismissReport = "dismiss_report"
	ActionWipeUser      = "wipe_user"
)

// AdminAction is an append-only audit record of a moderation mutation.
// Written as a side effect; never read back to drive behavior.
type AdminAction struct {
	ID              string    `json:"id" bson:"_id"`
	AdminID         string    `json:"admin_id" bson:"admin_id"`
	ActionType      string    `json:"action_type" bson:"action_type"`
	TargetUserID    string    `json:"target_user_id,omitempty" bson:"target_user_id,omitempty"`
	TargetPostID    string    `json:"target_post_id,omitempty" bson:"target_post_id,omitempty"`
	TargetCommentID string    `json:"target_comment_id,omitempty" bson:"target_comment_id,omitempty"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
}
