package command

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/tournament"
)

var (
	ErrAccessDenied   = errors.New("access denied")
	ErrUnknownCommand = errors.New("is not a tournament command")
	ErrUsage          = errors.New("usage")
	ErrUserNotFound   = errors.New("user not found")
	ErrJoinCooldown   = errors.New("you have recently joined the tournament")
)

// Tier is the permission level a command needs.
type Tier int

const (
	TierParticipant Tier = iota
	TierCreator
	TierModerator
)

func tierOf(u *identity.User) Tier {
	switch u.Role {
	case identity.RoleModerator:
		return TierModerator
	case identity.RoleCreator:
		return TierCreator
	}
	return TierParticipant
}

// Room is the room a command runs in. It hosts the tournament and carries
// the room's announcement settings.
type Room interface {
	tournament.Session
	tournament.MatchSetup
	tournament.MatchHost
	SetAnnounceWins(on bool)
	SetAnnounceBattles(on bool)
}

type Request struct {
	Room  Room
	User  *identity.User
	Reply func(line string)
}

func (r Request) reply(format string, args ...any) {
	if r.Reply != nil {
		r.Reply(fmt.Sprintf(format, args...))
	}
}

type call struct {
	Request
	cmd    string
	params []string
	tour   *tournament.Tournament
}

type handler func(r *Router, c call) error

type command struct {
	tier Tier
	run  handler
}

var aliases = map[string]string{
	"j":             "join",
	"in":            "join",
	"l":             "leave",
	"out":           "leave",
	"begin":         "start",
	"dq":            "disqualify",
	"end":           "delete",
	"stop":          "delete",
	"reportwins":    "viewwins",
	"showwins":      "viewwins",
	"hidewins":      "viewwins",
	"reportbattles": "viewbattles",
	"showbattles":   "viewbattles",
	"hidebattles":   "viewbattles",
}

var commands = map[string]command{
	"join":            {TierParticipant, (*Router).join},
	"leave":           {TierParticipant, func(_ *Router, c call) error { return c.tour.Leave(c.User) }},
	"getupdate":       {TierParticipant, func(_ *Router, c call) error { return c.tour.Update(c.User) }},
	"challenge":       {TierParticipant, (*Router).challenge},
	"cancelchallenge": {TierParticipant, func(_ *Router, c call) error { return c.tour.CancelChallenge(c.User) }},
	"acceptchallenge": {TierParticipant, func(_ *Router, c call) error { return c.tour.AcceptChallenge(c.User) }},

	"settype": {TierCreator, (*Router).setType},
	"start":   {TierCreator, (*Router).start},

	"disqualify":  {TierModerator, (*Router).disqualify},
	"replace":     {TierModerator, (*Router).replace},
	"delete":      {TierModerator, (*Router).delete},
	"remind":      {TierModerator, (*Router).remind},
	"viewwins":    {TierModerator, (*Router).viewWins},
	"viewbattles": {TierModerator, (*Router).viewBattles},
}

type Config struct {
	Registry     *tournament.Registry
	Identities   *identity.Registry
	Rated        bool
	JoinCooldown time.Duration
	Logger       *zap.Logger
	Now          func() time.Time // defaults to time.Now
}

// Router parses "/tour" command lines and runs them against the room's
// tournament. It is shared by every room.
type Router struct {
	cfg Config

	mu       sync.Mutex
	lastJoin map[joinKey]time.Time
}

type joinKey struct {
	room string
	user identity.UserID
}

func NewRouter(cfg Config) *Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Router{cfg: cfg, lastJoin: make(map[joinKey]time.Time)}
}

// Parse splits a command line into the subcommand and its comma separated
// parameters. A leading /tour (or /tournament) is optional.
func Parse(line string) (cmd string, params []string) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "/") {
		head, rest, _ := strings.Cut(line, " ")
		switch strings.ToLower(head) {
		case "/tour", "/tours", "/tournament", "/tournaments":
			line = strings.TrimSpace(rest)
		}
	}
	cmd, rest, _ := strings.Cut(line, " ")
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	for _, p := range strings.Split(rest, ",") {
		params = append(params, strings.TrimSpace(p))
	}
	if len(params) == 1 && params[0] == "" {
		params = nil
	}
	return cmd, params
}

// Dispatch runs one command line for req.User in req.Room. Replies go to
// req.Reply; failures are returned.
func (r *Router) Dispatch(req Request, line string) error {
	cmd, params := Parse(line)
	switch cmd {
	case "":
		r.list(req)
		return nil
	case "help":
		req.reply(helpText)
		return nil
	case "create", "new":
		return r.create(req, cmd, params)
	}

	t := r.cfg.Registry.Get(req.Room.ID())
	if t == nil {
		return tournament.ErrNoTournament
	}
	name := cmd
	if alias, ok := aliases[cmd]; ok {
		name = alias
	}
	c, ok := commands[name]
	if !ok {
		return fmt.Errorf("%s %w", cmd, ErrUnknownCommand)
	}
	if tierOf(req.User) < c.tier {
		return fmt.Errorf("%s: %w", cmd, ErrAccessDenied)
	}
	return c.run(r, call{Request: req, cmd: cmd, params: params, tour: t})
}

func (r *Router) create(req Request, cmd string, params []string) error {
	if tierOf(req.User) < TierCreator {
		return fmt.Errorf("%s: %w", cmd, ErrAccessDenied)
	}
	if len(params) < 2 {
		return fmt.Errorf("%w: %s <format>, <type> [, <comma-separated arguments>]", ErrUsage, cmd)
	}
	_, err := r.cfg.Registry.Create(tournament.CreateRequest{
		Session: req.Room,
		Setup:   req.Room,
		Host:    req.Room,
		Format:  params[0],
		Kind:    params[1],
		Args:    params[2:],
		Rated:   r.cfg.Rated,
	})
	if err != nil {
		return err
	}
	r.cfg.Logger.Info("tournament created by command",
		zap.String("room", req.Room.ID()), zap.String("user", string(req.User.ID)), zap.String("format", params[0]))
	return nil
}

func (r *Router) list(req Request) {
	var rows []string
	for _, s := range r.cfg.Registry.List() {
		if !s.IsStarted {
			rows = append(rows, fmt.Sprintf("%s: %s %s", s.Room, s.Format, s.Generator))
		}
	}
	if len(rows) == 0 {
		req.reply("There are no tournaments in their signup phase.")
		return
	}
	req.reply("Tournaments in their signup phase: %s", strings.Join(rows, "; "))
}

func (r *Router) join(c call) error {
	key := joinKey{room: c.Room.ID(), user: c.User.ID}
	now := r.cfg.Now()

	r.mu.Lock()
	last, seen := r.lastJoin[key]
	r.mu.Unlock()
	if seen {
		if wait := r.cfg.JoinCooldown - now.Sub(last); wait > 0 {
			return fmt.Errorf("%w, wait %d seconds before joining again", ErrJoinCooldown, int(wait.Round(time.Second)/time.Second))
		}
	}

	if err := c.tour.Join(c.User, false); err != nil {
		return err
	}
	r.mu.Lock()
	r.lastJoin[key] = now
	r.mu.Unlock()
	c.reply("You have joined the tournament.")
	return nil
}

// target resolves the user named by the first parameter.
func (r *Router) target(c call, usage string) (*identity.User, error) {
	if len(c.params) < 1 || c.params[0] == "" {
		return nil, fmt.Errorf("%w: %s %s", ErrUsage, c.cmd, usage)
	}
	u, ok := r.cfg.Identities.Lookup(identity.ToID(c.params[0]))
	if !ok {
		return nil, fmt.Errorf("%s: %w", c.params[0], ErrUserNotFound)
	}
	return u, nil
}

func (r *Router) challenge(c call) error {
	opp, err := r.target(c, "<user>")
	if err != nil {
		return err
	}
	return c.tour.Challenge(c.User, opp)
}

func (r *Router) setType(c call) error {
	if len(c.params) < 1 || c.params[0] == "" {
		return fmt.Errorf("%w: %s <type> [, <comma-separated arguments>]", ErrUsage, c.cmd)
	}
	g, err := r.cfg.Registry.NewGenerator(c.params[0], c.params[1:])
	if err != nil {
		return err
	}
	if err := c.tour.SetGenerator(g); err != nil {
		return err
	}
	c.Room.Announce(fmt.Sprintf("%s changed the tournament type to %q.", c.User.Name, g.Name()))
	return nil
}

func (r *Router) start(c call) error {
	if err := c.tour.Start(); err != nil {
		return err
	}
	r.cfg.Logger.Info("tournament started by command", zap.String("room", c.Room.ID()), zap.String("user", string(c.User.ID)))
	return nil
}

func (r *Router) disqualify(c call) error {
	u, err := r.target(c, "<user>")
	if err != nil {
		return err
	}
	if err := c.tour.Disqualify(u); err != nil {
		return err
	}
	r.cfg.Logger.Info("participant disqualified by command",
		zap.String("room", c.Room.ID()), zap.String("by", string(c.User.ID)), zap.String("user", string(u.ID)))
	return nil
}

func (r *Router) replace(c call) error {
	if len(c.params) < 2 || c.params[0] == "" || c.params[1] == "" {
		return fmt.Errorf("%w: %s <user>, <replacement>", ErrUsage, c.cmd)
	}
	old, err := r.target(c, "<user>, <replacement>")
	if err != nil {
		return err
	}
	replacement, ok := r.cfg.Identities.Lookup(identity.ToID(c.params[1]))
	if !ok {
		return fmt.Errorf("%s: %w", c.params[1], ErrUserNotFound)
	}
	return c.tour.Replace(old, replacement)
}

func (r *Router) delete(c call) error {
	if err := r.cfg.Registry.End(c.Room.ID()); err != nil {
		return err
	}
	r.cfg.Logger.Info("tournament ended by command", zap.String("room", c.Room.ID()), zap.String("user", string(c.User.ID)))
	c.reply("The tournament was forcibly ended.")
	return nil
}

func (r *Router) remind(c call) error {
	rem, err := c.tour.Remind()
	if err != nil {
		return err
	}
	c.Room.Announce(fmt.Sprintf("Players have been reminded of their tournament battles by %s.", c.User.Name))
	if len(rem.Offline) > 0 {
		c.Room.Announce("The following users are currently offline: " + strings.Join(rem.Offline, ", ") + ".")
	}
	return nil
}

func (r *Router) viewWins(c call) error {
	on, err := toggle(c)
	if err != nil {
		return err
	}
	c.Room.SetAnnounceWins(on)
	if on {
		c.reply("Tournaments in this room will now announce when battles end.")
	} else {
		c.reply("Tournaments in this room will no longer announce when battles end.")
	}
	return nil
}

func (r *Router) viewBattles(c call) error {
	on, err := toggle(c)
	if err != nil {
		return err
	}
	c.Room.SetAnnounceBattles(on)
	if on {
		c.reply("Tournaments in this room will now announce when battles start.")
	} else {
		c.reply("Tournaments in this room will no longer announce when battles start.")
	}
	return nil
}

func toggle(c call) (bool, error) {
	if len(c.params) > 0 {
		switch strings.ToLower(c.params[0]) {
		case "on":
			return true, nil
		case "off":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %s on|off", ErrUsage, c.cmd)
}

const helpText = `Tournament commands:
/tour create|new <format>, <type> [, <comma-separated arguments>]: creates a tournament in this room.
/tour settype <type> [, <comma-separated arguments>]: changes the type before the tournament starts.
/tour begin|start: starts the tournament.
/tour join|leave, /tour challenge <user>, /tour cancelchallenge, /tour acceptchallenge: play in the tournament.
/tour getupdate: resends the tournament state.
/tour dq|disqualify <user>: disqualifies a participant.
/tour replace <user>, <replacement>: hands a participant's slot to another user.
/tour end|stop|delete: forcibly ends the tournament.
/tour remind: reminds every participant with a pending battle.
/tour reportwins on|off: toggles announcing battle results.
/tour reportbattles on|off: toggles announcing battle starts.`
