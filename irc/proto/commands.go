// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package proto

import (
	"strconv"
	"strings"

	"github.com/boardirc/boardirc/irc/modes"
)

// Command is one parsed protocol verb. The concrete type identifies the verb;
// Raw is the catch-all for anything that isn't in the verb table.
type Command interface {
	Verb() string
}

var (
	parseCommandFuncs map[string]func(*params) (Command, error)
)

func init() {
	parseCommandFuncs = map[string]func(*params) (Command, error){
		"ADMIN":    parseAdmin,
		"AWAY":     parseAway,
		"CONNECT":  parseConnect,
		"DIE":      func(*params) (Command, error) { return Die{}, nil },
		"ERROR":    parseError,
		"INFO":     parseInfo,
		"INVITE":   parseInvite,
		"ISON":     parseIson,
		"JOIN":     parseJoin,
		"KICK":     parseKick,
		"KILL":     parseKill,
		"LINKS":    parseLinks,
		"LIST":     parseList,
		"LUSERS":   parseLusers,
		"MODE":     parseMode,
		"MOTD":     parseMotd,
		"NAMES":    parseNames,
		"NICK":     parseNick,
		"NOTICE":   parseNotice,
		"OPER":     parseOper,
		"PART":     parsePart,
		"PASS":     parsePass,
		"PING":     parsePing,
		"PONG":     parsePong,
		"PRIVMSG":  parsePrivmsg,
		"QUIT":     parseQuit,
		"REHASH":   func(*params) (Command, error) { return Rehash{}, nil },
		"RESTART":  func(*params) (Command, error) { return Restart{}, nil },
		"SERVICE":  parseService,
		"SERVLIST": parseServlist,
		"SQUERY":   parseSquery,
		"SQUIT":    parseSquit,
		"STATS":    parseStats,
		"SUMMON":   parseSummon,
		"TIME":     parseTime,
		"TOPIC":    parseTopic,
		"TRACE":    parseTrace,
		"USER":     parseUser,
		"USERHOST": parseUserhost,
		"USERS":    parseUsers,
		"VERSION":  parseVersion,
		"WALLOPS":  parseWallops,
		"WHO":      parseWho,
		"WHOIS":    parseWhois,
		"WHOWAS":   parseWhowas,
	}
}

// ParseCommand parses a command section: a verb followed by space-separated
// arguments, with no trailing parameter. Verbs are matched case-sensitively;
// anything unrecognized becomes Raw carrying the whole section.
func ParseCommand(section string) (Command, error) {
	fields := strings.Fields(section)
	if len(fields) == 0 {
		if section == "" {
			return nil, ErrEmptyString
		}
		return nil, ErrNoCommandFound
	}
	return parseCommand(fields[0], &params{args: fields[1:]}, section)
}

func parseCommand(verb string, p *params, rawText string) (Command, error) {
	if constructor, ok := parseCommandFuncs[verb]; ok {
		return constructor(p)
	}
	if isNumeric(verb) {
		code, _ := strconv.ParseUint(verb, 10, 16)
		return Reply{Code: uint16(code), Params: p.rest()}, nil
	}
	return Raw{Text: rawText}, nil
}

func isNumeric(verb string) bool {
	if len(verb) != 3 {
		return false
	}
	for i := 0; i < len(verb); i++ {
		if verb[i] < '0' || verb[i] > '9' {
			return false
		}
	}
	return true
}

// params hands out a verb's arguments in order. Single arguments fall back to the
// trailing parameter once the space-separated ones run out; comma lists only ever
// come from the space-separated ones.
type params struct {
	args        []string
	trailing    string
	hasTrailing bool
}

func (p *params) next() (arg string, ok bool) {
	if len(p.args) != 0 {
		arg, p.args = p.args[0], p.args[1:]
		return arg, true
	}
	if p.hasTrailing {
		p.hasTrailing = false
		return p.trailing, true
	}
	return "", false
}

func (p *params) required() (string, error) {
	arg, ok := p.next()
	if !ok {
		return "", ErrMissingArgument
	}
	return arg, nil
}

func (p *params) optional() *string {
	arg, ok := p.next()
	if !ok {
		return nil
	}
	return &arg
}

func (p *params) list() []string {
	if len(p.args) == 0 {
		return []string{}
	}
	var arg string
	arg, p.args = p.args[0], p.args[1:]
	return splitList(arg)
}

func (p *params) requiredList() ([]string, error) {
	result := p.list()
	if len(result) == 0 {
		return nil, ErrMissingArgument
	}
	return result, nil
}

// trailingOnly consumes the trailing parameter, ignoring any unused arguments.
func (p *params) trailingOnly() *string {
	if !p.hasTrailing {
		return nil
	}
	p.hasTrailing = false
	trailing := p.trailing
	return &trailing
}

// rest consumes every remaining argument, including the trailing one.
func (p *params) rest() (result []string) {
	result = append([]string{}, p.args...)
	p.args = nil
	if p.hasTrailing {
		result = append(result, p.trailing)
		p.hasTrailing = false
	}
	return result
}

func splitList(arg string) (result []string) {
	result = []string{}
	for _, item := range strings.Split(arg, ",") {
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// 3.1 Connection Registration

// PASS <password>
type Pass struct {
	Password string
}

func (Pass) Verb() string { return "PASS" }

func parsePass(p *params) (Command, error) {
	password, err := p.required()
	if err != nil {
		return nil, err
	}
	return Pass{Password: password}, nil
}

// NICK <nickname>
type Nick struct {
	Nickname string
}

func (Nick) Verb() string { return "NICK" }

func parseNick(p *params) (Command, error) {
	nickname, err := p.required()
	if err != nil {
		return nil, err
	}
	return Nick{Nickname: nickname}, nil
}

// USER <username> <hostname> <server> <realname>
type User struct {
	Username string
	Hostname string
	Server   string
	Realname string
}

func (User) Verb() string { return "USER" }

func parseUser(p *params) (Command, error) {
	var fields [4]string
	for i := range fields {
		arg, err := p.required()
		if err != nil {
			return nil, err
		}
		fields[i] = arg
	}
	return User{Username: fields[0], Hostname: fields[1], Server: fields[2], Realname: fields[3]}, nil
}

// OPER <name> <password>
type Oper struct {
	Name     string
	Password string
}

func (Oper) Verb() string { return "OPER" }

func parseOper(p *params) (Command, error) {
	name, err := p.required()
	if err != nil {
		return nil, err
	}
	password, err := p.required()
	if err != nil {
		return nil, err
	}
	return Oper{Name: name, Password: password}, nil
}

// MODE <nickname> [<modestring>]
type UserMode struct {
	Nickname string
	Changes  []modes.UserModeChange
	Unknown  map[rune]bool

	Modestring string
	Args       []string
}

func (UserMode) Verb() string { return "MODE" }

// ChannelMode reinterprets the command for a channel whose name carries no
// channel prefix.
func (cmd UserMode) ChannelMode() ChannelMode {
	changes, unknown := modes.ParseChannelModeChanges(cmd.Modestring, cmd.Args...)
	return ChannelMode{Channel: cmd.Nickname, Changes: changes, Unknown: unknown}
}

// MODE <channel> [<modestring> [<mode arguments>...]]
type ChannelMode struct {
	Channel string
	Changes []modes.ChannelModeChange
	Unknown map[rune]bool
}

func (ChannelMode) Verb() string { return "MODE" }

// IsChannelName returns whether target uses one of the channel name prefixes.
func IsChannelName(target string) bool {
	if target == "" {
		return false
	}
	switch target[0] {
	case '#', '&', '+', '!':
		return true
	}
	return false
}

func parseMode(p *params) (Command, error) {
	target, err := p.required()
	if err != nil {
		return nil, err
	}
	var modestring string
	if arg := p.optional(); arg != nil {
		modestring = *arg
	}
	args := p.rest()
	if IsChannelName(target) {
		changes, unknown := modes.ParseChannelModeChanges(modestring, args...)
		return ChannelMode{Channel: target, Changes: changes, Unknown: unknown}, nil
	}
	changes, unknown := modes.ParseUserModeChanges(modestring)
	return UserMode{Nickname: target, Changes: changes, Unknown: unknown, Modestring: modestring, Args: args}, nil
}

// SERVICE <nickname> <reserved> <distribution> <type> <reserved> <info>
type Service struct {
	Nickname     string
	Reserved     string
	Distribution string
	Type         string
	Reserved2    string
	Info         string
}

func (Service) Verb() string { return "SERVICE" }

func parseService(p *params) (Command, error) {
	var fields [6]string
	for i := range fields {
		arg, err := p.required()
		if err != nil {
			return nil, err
		}
		fields[i] = arg
	}
	return Service{
		Nickname:     fields[0],
		Reserved:     fields[1],
		Distribution: fields[2],
		Type:         fields[3],
		Reserved2:    fields[4],
		Info:         fields[5],
	}, nil
}

// QUIT [<comment>]
type Quit struct {
	Comment *string
}

func (Quit) Verb() string { return "QUIT" }

func parseQuit(p *params) (Command, error) {
	return Quit{Comment: p.optional()}, nil
}

// SQUIT <server> <comment>
type Squit struct {
	Server  string
	Comment string
}

func (Squit) Verb() string { return "SQUIT" }

func parseSquit(p *params) (Command, error) {
	server, err := p.required()
	if err != nil {
		return nil, err
	}
	comment, err := p.required()
	if err != nil {
		return nil, err
	}
	return Squit{Server: server, Comment: comment}, nil
}

// 3.2 Channel operations

// JOIN <channel>{,<channel>} [<key>{,<key>}] [:<trailing>]
type Join struct {
	Channels []string
	Keys     []string
	Trailing *string
}

func (Join) Verb() string { return "JOIN" }

func parseJoin(p *params) (Command, error) {
	channels, err := p.requiredList()
	if err != nil {
		return nil, err
	}
	return Join{Channels: channels, Keys: p.list(), Trailing: p.trailingOnly()}, nil
}

// PART [<channel>{,<channel>}] [<comment>]
type Part struct {
	Channels []string
	Comment  *string
}

func (Part) Verb() string { return "PART" }

func parsePart(p *params) (Command, error) {
	return Part{Channels: p.list(), Comment: p.optional()}, nil
}

// TOPIC <channel> [<topic>]
type Topic struct {
	Channel string
	Topic   *string
}

func (Topic) Verb() string { return "TOPIC" }

func parseTopic(p *params) (Command, error) {
	channel, err := p.required()
	if err != nil {
		return nil, err
	}
	return Topic{Channel: channel, Topic: p.optional()}, nil
}

// NAMES [<channel>{,<channel>} [<target>]]
type Names struct {
	Channels []string
	Target   *string
}

func (Names) Verb() string { return "NAMES" }

func parseNames(p *params) (Command, error) {
	return Names{Channels: p.list(), Target: p.optional()}, nil
}

// LIST [<channel>{,<channel>} [<target>]]
type List struct {
	Channels []string
	Target   *string
}

func (List) Verb() string { return "LIST" }

func parseList(p *params) (Command, error) {
	return List{Channels: p.list(), Target: p.optional()}, nil
}

// INVITE <nickname> <channel>
type Invite struct {
	Nickname string
	Channel  string
}

func (Invite) Verb() string { return "INVITE" }

func parseInvite(p *params) (Command, error) {
	nickname, err := p.required()
	if err != nil {
		return nil, err
	}
	channel, err := p.required()
	if err != nil {
		return nil, err
	}
	return Invite{Nickname: nickname, Channel: channel}, nil
}

// KICK <channel> <user> [<comment>]
type Kick struct {
	Channel string
	User    string
	Comment *string
}

func (Kick) Verb() string { return "KICK" }

func parseKick(p *params) (Command, error) {
	channel, err := p.required()
	if err != nil {
		return nil, err
	}
	user, err := p.required()
	if err != nil {
		return nil, err
	}
	return Kick{Channel: channel, User: user, Comment: p.optional()}, nil
}

// 3.3 Sending messages

// PRIVMSG <target> <text>
type Privmsg struct {
	Target string
	Text   string
}

func (Privmsg) Verb() string { return "PRIVMSG" }

func parsePrivmsg(p *params) (Command, error) {
	target, text, err := targetAndText(p)
	if err != nil {
		return nil, err
	}
	return Privmsg{Target: target, Text: text}, nil
}

// NOTICE <target> <text>
type Notice struct {
	Target string
	Text   string
}

func (Notice) Verb() string { return "NOTICE" }

func parseNotice(p *params) (Command, error) {
	target, text, err := targetAndText(p)
	if err != nil {
		return nil, err
	}
	return Notice{Target: target, Text: text}, nil
}

func targetAndText(p *params) (target, text string, err error) {
	if target, err = p.required(); err != nil {
		return
	}
	text, err = p.required()
	return
}

// 3.4 Server queries and commands

// MOTD [<target>]
type Motd struct {
	Target *string
}

func (Motd) Verb() string { return "MOTD" }

func parseMotd(p *params) (Command, error) {
	return Motd{Target: p.optional()}, nil
}

// LUSERS [<mask> [<target>]]
type Lusers struct {
	Mask   *string
	Target *string
}

func (Lusers) Verb() string { return "LUSERS" }

func parseLusers(p *params) (Command, error) {
	return Lusers{Mask: p.optional(), Target: p.optional()}, nil
}

// VERSION [<target>]
type Version struct {
	Target *string
}

func (Version) Verb() string { return "VERSION" }

func parseVersion(p *params) (Command, error) {
	return Version{Target: p.optional()}, nil
}

// STATS [<query> [<target>]]
type Stats struct {
	Query  *string
	Target *string
}

func (Stats) Verb() string { return "STATS" }

func parseStats(p *params) (Command, error) {
	return Stats{Query: p.optional(), Target: p.optional()}, nil
}

// LINKS [[<remote server>] <server mask>]
type Links struct {
	RemoteServer *string
	Mask         *string
}

func (Links) Verb() string { return "LINKS" }

func parseLinks(p *params) (Command, error) {
	first, second := p.optional(), p.optional()
	if second == nil {
		return Links{Mask: first}, nil
	}
	return Links{RemoteServer: first, Mask: second}, nil
}

// TIME [<target>]
type Time struct {
	Target *string
}

func (Time) Verb() string { return "TIME" }

func parseTime(p *params) (Command, error) {
	return Time{Target: p.optional()}, nil
}

// CONNECT <target server> <port> [<remote server>]
type Connect struct {
	Target       string
	Port         string
	RemoteServer *string
}

func (Connect) Verb() string { return "CONNECT" }

func parseConnect(p *params) (Command, error) {
	target, err := p.required()
	if err != nil {
		return nil, err
	}
	port, err := p.required()
	if err != nil {
		return nil, err
	}
	return Connect{Target: target, Port: port, RemoteServer: p.optional()}, nil
}

// TRACE [<target>]
type Trace struct {
	Target *string
}

func (Trace) Verb() string { return "TRACE" }

func parseTrace(p *params) (Command, error) {
	return Trace{Target: p.optional()}, nil
}

// ADMIN [<target>]
type Admin struct {
	Target *string
}

func (Admin) Verb() string { return "ADMIN" }

func parseAdmin(p *params) (Command, error) {
	return Admin{Target: p.optional()}, nil
}

// INFO [<target>]
type Info struct {
	Target *string
}

func (Info) Verb() string { return "INFO" }

func parseInfo(p *params) (Command, error) {
	return Info{Target: p.optional()}, nil
}

// 3.5 Service Query and Commands

// SERVLIST [<mask> [<type>]]
type Servlist struct {
	Mask *string
	Type *string
}

func (Servlist) Verb() string { return "SERVLIST" }

func parseServlist(p *params) (Command, error) {
	return Servlist{Mask: p.optional(), Type: p.optional()}, nil
}

// SQUERY <servicename> <text>
type Squery struct {
	Service string
	Text    string
}

func (Squery) Verb() string { return "SQUERY" }

func parseSquery(p *params) (Command, error) {
	service, text, err := targetAndText(p)
	if err != nil {
		return nil, err
	}
	return Squery{Service: service, Text: text}, nil
}

// 3.6 User based queries

// WHO [<mask> ["o"]]
type Who struct {
	Mask     *string
	OperOnly bool
}

func (Who) Verb() string { return "WHO" }

func parseWho(p *params) (Command, error) {
	mask := p.optional()
	flag := p.optional()
	return Who{Mask: mask, OperOnly: flag != nil && *flag == "o"}, nil
}

// WHOIS [<target>] <mask>{,<mask>}
type Whois struct {
	Target *string
	Masks  []string
}

func (Whois) Verb() string { return "WHOIS" }

func parseWhois(p *params) (Command, error) {
	first, err := p.required()
	if err != nil {
		return nil, err
	}
	if second := p.optional(); second != nil {
		return Whois{Target: &first, Masks: splitList(*second)}, nil
	}
	return Whois{Masks: splitList(first)}, nil
}

// WHOWAS <nickname>{,<nickname>} [<count> [<target>]]
type Whowas struct {
	Nicknames []string
	Count     *string
	Target    *string
}

func (Whowas) Verb() string { return "WHOWAS" }

func parseWhowas(p *params) (Command, error) {
	nicknames, err := p.requiredList()
	if err != nil {
		return nil, err
	}
	return Whowas{Nicknames: nicknames, Count: p.optional(), Target: p.optional()}, nil
}

// 3.7 Miscellaneous messages

// KILL <nickname> <comment>
type Kill struct {
	Nickname string
	Comment  string
}

func (Kill) Verb() string { return "KILL" }

func parseKill(p *params) (Command, error) {
	nickname, comment, err := targetAndText(p)
	if err != nil {
		return nil, err
	}
	return Kill{Nickname: nickname, Comment: comment}, nil
}

// PING <server> [<server2>]
type Ping struct {
	Server  string
	Server2 *string
}

func (Ping) Verb() string { return "PING" }

func parsePing(p *params) (Command, error) {
	server, err := p.required()
	if err != nil {
		return nil, err
	}
	return Ping{Server: server, Server2: p.optional()}, nil
}

// PONG <server> [<server2>]
type Pong struct {
	Server  string
	Server2 *string
}

func (Pong) Verb() string { return "PONG" }

func parsePong(p *params) (Command, error) {
	server, err := p.required()
	if err != nil {
		return nil, err
	}
	return Pong{Server: server, Server2: p.optional()}, nil
}

// ERROR <message>
type ErrorMsg struct {
	Message string
}

func (ErrorMsg) Verb() string { return "ERROR" }

func parseError(p *params) (Command, error) {
	message, err := p.required()
	if err != nil {
		return nil, err
	}
	return ErrorMsg{Message: message}, nil
}

// 4 Optional features

// AWAY [<message>]
type Away struct {
	Message *string
}

func (Away) Verb() string { return "AWAY" }

func parseAway(p *params) (Command, error) {
	return Away{Message: p.optional()}, nil
}

// REHASH
type Rehash struct{}

func (Rehash) Verb() string { return "REHASH" }

// DIE
type Die struct{}

func (Die) Verb() string { return "DIE" }

// RESTART
type Restart struct{}

func (Restart) Verb() string { return "RESTART" }

// SUMMON <user> [<target> [<channel>]]
type Summon struct {
	User    string
	Target  *string
	Channel *string
}

func (Summon) Verb() string { return "SUMMON" }

func parseSummon(p *params) (Command, error) {
	user, err := p.required()
	if err != nil {
		return nil, err
	}
	return Summon{User: user, Target: p.optional(), Channel: p.optional()}, nil
}

// USERS [<target>]
type Users struct {
	Target *string
}

func (Users) Verb() string { return "USERS" }

func parseUsers(p *params) (Command, error) {
	return Users{Target: p.optional()}, nil
}

// WALLOPS <text>
type Wallops struct {
	Text string
}

func (Wallops) Verb() string { return "WALLOPS" }

func parseWallops(p *params) (Command, error) {
	text, err := p.required()
	if err != nil {
		return nil, err
	}
	return Wallops{Text: text}, nil
}

// USERHOST <nickname>{ <nickname>}
type Userhost struct {
	Nicknames []string
}

func (Userhost) Verb() string { return "USERHOST" }

func parseUserhost(p *params) (Command, error) {
	nicknames := p.rest()
	if len(nicknames) == 0 {
		return nil, ErrMissingArgument
	}
	return Userhost{Nicknames: nicknames}, nil
}

// ISON <nickname>{ <nickname>}
type Ison struct {
	Nicknames []string
}

func (Ison) Verb() string { return "ISON" }

func parseIson(p *params) (Command, error) {
	nicknames := p.rest()
	if len(nicknames) == 0 {
		return nil, ErrMissingArgument
	}
	return Ison{Nicknames: nicknames}, nil
}

// Reply is a three-digit numeric reply, as sent by servers.
type Reply struct {
	Code   uint16
	Params []string
}

func (r Reply) Verb() string { return strconv.FormatUint(uint64(r.Code)+1000, 10)[1:] }

// Raw is free text, or a line whose verb isn't in the table.
type Raw struct {
	Text string
}

func (Raw) Verb() string { return "" }
