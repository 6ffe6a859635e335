// Package commands implements the chat command dispatcher: a token trie over
// literal command names and aliases, a parallel trie for chat "actions", an
// ordered regex lane, a declarative argument binder, and the middleware
// pipeline every handler runs under.
package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/osuripple/fokabot/pkg/osu"
	"github.com/osuripple/fokabot/pkg/wire"
)

// ActionSentinel frames a chat "action" message (/me) on the wire.
const ActionSentinel = "\x01ACTION "

// Invocation is the per-message context a handler runs with.
type Invocation struct {
	Sender    wire.User
	Recipient wire.Recipient
	PM        bool
	Message   string

	// Command is the literal name or alias that matched, for help rendering.
	Command string
	// RawArgs are the tokens after the command name.
	RawArgs []string
	// Args holds the validated argument values after binding.
	Args map[string]any
	// Groups holds the submatches of a regex command.
	Groups []string
}

// ReplyTarget derives where replies go: back to the sender in a PM,
// otherwise to the channel.
func (inv *Invocation) ReplyTarget() string {
	if inv.PM {
		return inv.Sender.Username
	}
	return inv.Recipient.Name
}

// String returns the validated string argument by name.
func (inv *Invocation) String(name string) string {
	s, _ := inv.Args[name].(string)
	return s
}

// Int returns the validated integer argument by name.
func (inv *Invocation) Int(name string) int {
	n, _ := inv.Args[name].(int)
	return n
}

// Handler executes one matched invocation. Each returned string is sent to
// the derived reply target.
type Handler func(ctx context.Context, inv *Invocation) ([]string, error)

// Filter rejects invocations whose chat context does not fit the command
// (wrong channel kind, not a PM, …). A rejected invocation is silently
// dropped.
type Filter func(inv *Invocation) bool

// PublicOnly accepts channel messages only.
func PublicOnly(inv *Invocation) bool { return !inv.PM }

// PrivateOnly accepts PMs only.
func PrivateOnly(inv *Invocation) bool { return inv.PM }

// MultiplayerOnly accepts messages sent in a multiplayer room channel.
func MultiplayerOnly(inv *Invocation) bool {
	return !inv.PM && strings.HasPrefix(inv.Recipient.Name, "#multi_")
}

// SpectatorOnly accepts messages sent in a spectator channel.
func SpectatorOnly(inv *Invocation) bool {
	return !inv.PM && strings.HasPrefix(inv.Recipient.Name, "#spect_")
}

// Command is one registration. Built by plugins at startup, immutable after.
type Command struct {
	Name       string
	Aliases    []string
	Args       []ArgSpec
	Privileges osu.Privileges
	Filters    []Filter
	Handler    Handler

	pipeline Handler
}

// RegexCommand matches the whole message body against a pattern. Pre, when
// set, gates whether the pattern is tried at all for a given chat context.
type RegexCommand struct {
	Name       string
	Pattern    *regexp.Regexp
	Pre        func(recipient wire.Recipient, pm bool) bool
	Privileges osu.Privileges
	Filters    []Filter
	Handler    Handler

	pipeline Handler
}

type trieNode struct {
	children map[string]*trieNode
	cmd      *Command
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

func (n *trieNode) insert(tokens []string, cmd *Command) error {
	cur := n
	for _, tok := range tokens {
		next, ok := cur.children[tok]
		if !ok {
			next = newTrieNode()
			cur.children[tok] = next
		}
		cur = next
	}
	if cur.cmd != nil {
		return fmt.Errorf("name %q already registered", strings.Join(tokens, " "))
	}
	cur.cmd = cmd
	return nil
}

// lookup walks the trie and returns the deepest registered command along the
// token path, so multi-word names match as the longest resolving prefix.
func (n *trieNode) lookup(tokens []string) (*Command, int) {
	var (
		found *Command
		depth int
	)
	cur := n
	for i, tok := range tokens {
		next, ok := cur.children[tok]
		if !ok {
			break
		}
		cur = next
		if cur.cmd != nil {
			found = cur.cmd
			depth = i + 1
		}
	}
	return found, depth
}

// Registry resolves inbound chat messages to handlers. Registration happens
// during plugin load; resolution is read-only after.
type Registry struct {
	prefix   string
	commands *trieNode
	actions  *trieNode
	regexes  []*RegexCommand
	names    map[string]*Command
}

// NewRegistry creates an empty registry with the given command prefix.
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = "!"
	}
	return &Registry{
		prefix:   prefix,
		commands: newTrieNode(),
		actions:  newTrieNode(),
		names:    make(map[string]*Command),
	}
}

// Register adds a literal command and its aliases. Name collisions and
// malformed arg specs are programmer errors and panic at load.
func (r *Registry) Register(cmd *Command) {
	r.register(r.commands, cmd)
}

// RegisterAction adds an action (/me) command.
func (r *Registry) RegisterAction(cmd *Command) {
	r.register(r.actions, cmd)
}

func (r *Registry) register(root *trieNode, cmd *Command) {
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == "" {
		panic("commands: registration with empty name")
	}
	if _, dup := r.names[name]; dup {
		panic(fmt.Sprintf("commands: duplicate canonical name %q", name))
	}
	checkSpecs(name, cmd.Args)
	cmd.Name = name
	cmd.pipeline = buildPipeline(cmd.Handler, cmd.Privileges, cmd.Filters, cmd.Args)
	r.names[name] = cmd

	if err := root.insert(strings.Fields(name), cmd); err != nil {
		panic("commands: " + err.Error())
	}
	for _, alias := range cmd.Aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if err := root.insert(strings.Fields(alias), cmd); err != nil {
			panic("commands: " + err.Error())
		}
	}
}

// RegisterRegex adds a regex command. Regexes are tried in registration
// order after literal and action lookup fail.
func (r *Registry) RegisterRegex(cmd *RegexCommand) {
	if cmd.Pattern == nil {
		panic(fmt.Sprintf("commands: regex command %q has no pattern", cmd.Name))
	}
	cmd.pipeline = buildPipeline(cmd.Handler, cmd.Privileges, cmd.Filters, nil)
	r.regexes = append(r.regexes, cmd)
}

// Dispatch resolves the message to at most one handler and runs it through
// its pipeline. It reports whether anything matched; the returned strings
// are the replies to send.
func (r *Registry) Dispatch(ctx context.Context, inv *Invocation) ([]string, bool) {
	body := inv.Message

	switch {
	case strings.HasPrefix(body, ActionSentinel):
		return r.dispatchTrie(ctx, r.actions, strings.TrimSuffix(body[len(ActionSentinel):], "\x01"), inv)
	case strings.HasPrefix(body, r.prefix):
		return r.dispatchTrie(ctx, r.commands, body[len(r.prefix):], inv)
	}

	for _, rc := range r.regexes {
		if rc.Pre != nil && !rc.Pre(inv.Recipient, inv.PM) {
			continue
		}
		groups := rc.Pattern.FindStringSubmatch(body)
		if groups == nil {
			continue
		}
		inv.Command = rc.Name
		inv.Groups = groups
		out, _ := rc.pipeline(ctx, inv)
		return out, true
	}
	return nil, false
}

func (r *Registry) dispatchTrie(ctx context.Context, root *trieNode, body string, inv *Invocation) ([]string, bool) {
	tokens := strings.Fields(strings.ToLower(body))
	cmd, depth := root.lookup(tokens)
	if cmd == nil {
		return nil, false
	}
	// Arg tokens keep the original casing; only the name tokens are folded.
	rawTokens := strings.Fields(body)
	inv.Command = strings.Join(tokens[:depth], " ")
	inv.RawArgs = rawTokens[depth:]
	out, _ := cmd.pipeline(ctx, inv)
	return out, true
}
