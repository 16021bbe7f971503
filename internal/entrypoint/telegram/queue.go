package telegram

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatQueues hands the updates of one chat to a single worker in the order
// they were pushed. Different chats are drained in parallel. A chat's entry
// exists only while its worker runs.
type chatQueues struct {
	mu      sync.Mutex
	pending map[int64][]tgbotapi.Update
	wg      sync.WaitGroup
}

func newChatQueues() *chatQueues {
	return &chatQueues{pending: make(map[int64][]tgbotapi.Update)}
}

// push appends update to the chat's queue and starts a worker if none is
// draining it.
func (q *chatQueues) push(chatID int64, update tgbotapi.Update, handle func(tgbotapi.Update)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, running := q.pending[chatID]
	q.pending[chatID] = append(queue, update)
	if running {
		return
	}

	q.wg.Add(1)
	go q.drain(chatID, handle)
}

func (q *chatQueues) drain(chatID int64, handle func(tgbotapi.Update)) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		queue := q.pending[chatID]
		if len(queue) == 0 {
			delete(q.pending, chatID)
			q.mu.Unlock()
			return
		}
		update := queue[0]
		q.pending[chatID] = queue[1:]
		q.mu.Unlock()

		handle(update)
	}
}

// wait blocks until every pushed update has been handled.
func (q *chatQueues) wait() {
	q.wg.Wait()
}

func (q *chatQueues) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// chatOf returns the chat an update belongs to, or nil when it cannot be
// answered.
func chatOf(update tgbotapi.Update) *tgbotapi.Chat {
	switch {
	case update.Message != nil:
		return update.Message.Chat
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat
	}
	return nil
}
