package tracker

import (
	"context"
	"fmt"
	"strings"

	"mention-bot/utils"
)

// OnMessageDeleted removes the mention of a deleted message and the thread row it
// leaves empty. A message that never produced a mention is not an error.
func (t *Tracker) OnMessageDeleted(ctx context.Context, messageID, guildID string) error {
	res, err := t.ledger.DeleteMentionByMessage(ctx, guildID, messageID)
	if err != nil {
		return err
	}
	if res.Mentions == 0 {
		utils.Logger().Debugw("no mention recorded for deleted message", "messageID", messageID, "guildID", guildID)
		return nil
	}

	details := fmt.Sprintf("Removed mention for deleted message %s", messageID)
	if len(res.ThreadsDeleted) > 0 {
		details += fmt.Sprintf("; removed empty threads %s", strings.Join(res.ThreadsDeleted, ", "))
	}
	utils.Logger().Infow(details, "guildID", guildID)
	return nil
}

// OnThreadDeleted removes a deleted thread; its mentions go with it through the
// storage cascade.
func (t *Tracker) OnThreadDeleted(ctx context.Context, threadID string) error {
	deleted, err := t.ledger.DeleteThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !deleted {
		utils.Logger().Debugw("deleted thread was never stored", "threadID", threadID)
		return nil
	}
	utils.Info("ThreadDelete", "DatabaseUpdate", fmt.Sprintf("Deleted thread %s and its mentions", threadID))
	return nil
}

// OnThreadUpdated refreshes the stored name of a thread that already holds mentions.
func (t *Tracker) OnThreadUpdated(ctx context.Context, threadID, name string) error {
	if name == "" {
		return nil
	}
	renamed, err := t.ledger.RenameThread(ctx, threadID, name)
	if err != nil {
		return err
	}
	if renamed {
		utils.Logger().Debugw("thread renamed", "threadID", threadID, "name", name)
	}
	return nil
}
