package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
)

// qaSystemTemplate is the system prompt of the question answering chain. The
// retrieved context goes after the separator.
const qaSystemTemplate = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
%s`

// ChatGreeting opens every web-search chat.
const ChatGreeting = "Hi, I'm a chatbot who can search the web. How can I help you?"

// QAMessages builds the message list for a grounded answer: the context in
// the system turn, prior turns from history, then the question.
func QAMessages(contextBlock, question string, history core.History) []Message {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: string(core.RoleSystem), Content: fmt.Sprintf(qaSystemTemplate, contextBlock)})
	msgs = append(msgs, FromHistory(history)...)
	msgs = append(msgs, Message{Role: string(core.RoleUser), Content: question})
	return msgs
}

// SearchSystemPrompt is the system turn for the web-search chatbot.
func SearchSystemPrompt(now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant for staff of a forestry ministry. ")
	b.WriteString("You can search the web with the web_search tool and the ministry's document library with the search_documents tool. ")
	b.WriteString("Use a tool whenever the question depends on current events or on ministry documents, and cite the URLs or document sources you used. ")
	b.WriteString("If the tools return nothing useful, say so rather than guessing.\n\n")
	fmt.Fprintf(&b, "The current time is %s.", now.Format(time.RFC1123))
	return b.String()
}

// FromHistory converts caller-owned history into wire messages. Tool turns
// are dropped; they are only meaningful next to the call that produced them.
func FromHistory(h core.History) []Message {
	out := make([]Message, 0, len(h))
	for _, m := range h {
		if m.Role == core.RoleTool {
			continue
		}
		out = append(out, Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
