// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Commands holds a large list of useful methods to interact with the server,
// and wrappers for common events.
type Commands struct {
	c *Client
}

// send is a small helper so that the wrapper methods below can be written
// as "return cmd.send(...)" regardless of whether Client.Send() itself
// returns an error.
func (cmd *Commands) send(e *Event) error {
	cmd.c.Send(e)
	return nil
}

// Nick changes the client nickname.
func (cmd *Commands) Nick(name string) error {
	if !IsValidNick(name) {
		return &ErrInvalidTarget{Target: name}
	}

	return cmd.send(&Event{Command: NICK, Params: []string{name}})
}

// Join attempts to enter a list of IRC channels, at bulk if possible to
// prevent sending extensive JOIN commands.
func (cmd *Commands) Join(channels ...string) error {
	// We can join multiple channels at once, however we need to ensure that
	// we are not exceeding the line length. (see maxLength)
	max := maxLength - len(JOIN) - 1

	var buffer string
	var err error

	for i := 0; i < len(channels); i++ {
		if !IsValidChannel(channels[i]) {
			return &ErrInvalidTarget{Target: channels[i]}
		}

		if len(buffer+","+channels[i]) > max {
			err = cmd.send(&Event{Command: JOIN, Params: []string{buffer}})
			if err != nil {
				return err
			}
			buffer = ""
		}

		if len(buffer) == 0 {
			buffer = channels[i]
		} else {
			buffer += "," + channels[i]
		}

		if i == len(channels)-1 {
			return cmd.send(&Event{Command: JOIN, Params: []string{buffer}})
		}
	}

	return nil
}

// JoinKey attempts to enter an IRC channel with a password.
func (cmd *Commands) JoinKey(channel, password string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	return cmd.send(&Event{Command: JOIN, Params: []string{channel, password}})
}

// Part leaves an IRC channel.
func (cmd *Commands) Part(channel string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	return cmd.send(&Event{Command: PART, Params: []string{channel}})
}

// PartMessage leaves an IRC channel with a specified leave message.
func (cmd *Commands) PartMessage(channel, message string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	return cmd.send(&Event{Command: PART, Params: []string{channel}, Trailing: message})
}


// Message sends a PRIVMSG to target (either channel, service, or user).
func (cmd *Commands) Message(target, message string) error {
	if !IsValidNick(target) && !IsValidChannel(target) {
		return &ErrInvalidTarget{Target: target}
	}

	return cmd.send(&Event{Command: PRIVMSG, Params: []string{target}, Trailing: message})
}

// Messagef sends a formated PRIVMSG to target (either channel, service, or
// user).
func (cmd *Commands) Messagef(target, format string, a ...interface{}) error {
	return cmd.Message(target, fmt.Sprintf(format, a...))
}

// Action sends a PRIVMSG ACTION (/me) to target (either channel, service,
// or user).
func (cmd *Commands) Action(target, message string) error {
	if !IsValidNick(target) && !IsValidChannel(target) {
		return &ErrInvalidTarget{Target: target}
	}

	return cmd.send(&Event{
		Command:  PRIVMSG,
		Params:   []string{target},
		Trailing: fmt.Sprintf("\001ACTION %s\001", message),
	})
}

// Actionf sends a formated PRIVMSG ACTION (/me) to target (either channel,
// service, or user).
func (cmd *Commands) Actionf(target, format string, a ...interface{}) error {
	return cmd.Action(target, fmt.Sprintf(format, a...))
}

// Notice sends a NOTICE to target (either channel, service, or user).
func (cmd *Commands) Notice(target, message string) error {
	if !IsValidNick(target) && !IsValidChannel(target) {
		return &ErrInvalidTarget{Target: target}
	}

	return cmd.send(&Event{Command: NOTICE, Params: []string{target}, Trailing: message})
}

// Noticef sends a formated NOTICE to target (either channel, service, or
// user).
func (cmd *Commands) Noticef(target, format string, a ...interface{}) error {
	return cmd.Notice(target, fmt.Sprintf(format, a...))
}

// SendRaw sends a raw string back to the server, without carriage returns
// or newlines.
func (cmd *Commands) SendRaw(raw string) error {
	e := ParseEvent(raw)
	if e == nil {
		return errors.New("invalid event: " + raw)
	}

	return cmd.send(e)
}

// SendRawf sends a formated string back to the server, without carriage
// returns or newlines.
func (cmd *Commands) SendRawf(format string, a ...interface{}) error {
	return cmd.SendRaw(fmt.Sprintf(format, a...))
}

// Topic sets the topic of channel to message. Does not verify the length
// of the topic.
func (cmd *Commands) Topic(channel, message string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	return cmd.send(&Event{Command: TOPIC, Params: []string{channel}, Trailing: message})
}

// Who sends a WHO query to the server, which will attempt WHOX by default.
// See http://faerion.sourceforge.net/doc/irc/whox.var for more details. This
// sends "%tcuhnr,2" per default. Do not use "1" as this will conflict with
// this library's builtin tracking functionality.
func (cmd *Commands) Who(target string) error {
	if !IsValidNick(target) && !IsValidChannel(target) && !IsValidUser(target) {
		return &ErrInvalidTarget{Target: target}
	}

	return cmd.send(&Event{Command: WHO, Params: []string{target, "%tcuhnr,2"}})
}

// Whois sends a WHOIS query to the server, targeted at a specific user.
// as WHOIS is a bit slower, you may want to use WHO for brief user info.
func (cmd *Commands) Whois(nick string) error {
	if !IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}

	return cmd.send(&Event{Command: WHOIS, Params: []string{nick}})
}

// Whowas sends a WHOWAS query to the server. amount is the amount of results
// you want back.
func (cmd *Commands) Whowas(nick string, amount int) error {
	if !IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}

	return cmd.send(&Event{Command: WHOWAS, Params: []string{nick, strconv.Itoa(amount)}})
}

// Ping sends a PING query to the server, with a specific identifier that
// the server should respond with.
func (cmd *Commands) Ping(id string) error {
	return cmd.send(&Event{Command: PING, Params: []string{id}})
}

// Pong sends a PONG query to the server, with an identifier which was
// received from a previous PING query received by the client.
func (cmd *Commands) Pong(id string) error {
	return cmd.send(&Event{Command: PONG, Params: []string{id}})
}

// Oper sends a OPER authentication query to the server, with a username
// and password.
func (cmd *Commands) Oper(user, pass string) error {
	return cmd.send(&Event{Command: OPER, Params: []string{user, pass}, Sensitive: true})
}

// Kick sends a KICK query to the server, attempting to kick nick from
// channel, with reason. If reason is blank, one will not be sent to the
// server.
func (cmd *Commands) Kick(channel, nick, reason string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	if !IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}

	if reason != "" {
		return cmd.send(&Event{Command: KICK, Params: []string{channel, nick}, Trailing: reason})
	}

	return cmd.send(&Event{Command: KICK, Params: []string{channel, nick}})
}

// Invite sends a INVITE query to the server, to invite nick to channel.
func (cmd *Commands) Invite(channel, nick string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	if !IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}

	return cmd.send(&Event{Command: INVITE, Params: []string{nick, channel}})
}

// Away sends a AWAY query to the server, suggesting that the client is no
// longer active. If reason is blank, Commands.Back() is called. Also see
// Commands.Back().
func (cmd *Commands) Away(reason string) error {
	if reason == "" {
		return cmd.Back()
	}

	return cmd.send(&Event{Command: AWAY, Trailing: reason})
}

// Back sends a AWAY query to the server, however the query is blank,
// suggesting that the client is active once again. Also see Commands.Away().
func (cmd *Commands) Back() error {
	return cmd.send(&Event{Command: AWAY})
}

// List sends a LIST query to the server, which will list channels and topics.
// Supports multiple channels at once, in hopes it will reduce extensive
// LIST queries to the server. Supply no channels to run a list against the
// entire server (warning, that may mean LOTS of channels!)
func (cmd *Commands) List(channels ...string) error {
	if len(channels) == 0 {
		return cmd.send(&Event{Command: LIST})
	}

	// We can LIST multiple channels at once, however we need to ensure that
	// we are not exceeding the line length. (see maxLength)
	max := maxLength - len(LIST) - 1

	var buffer string
	var err error

	for i := 0; i < len(channels); i++ {
		if !IsValidChannel(channels[i]) {
			return &ErrInvalidTarget{Target: channels[i]}
		}

		if len(buffer+","+channels[i]) > max {
			err = cmd.send(&Event{Command: LIST, Params: []string{buffer}})
			if err != nil {
				return err
			}
			buffer = ""
		}

		if len(buffer) == 0 {
			buffer = channels[i]
		} else {
			buffer += "," + channels[i]
		}

		if i == len(channels)-1 {
			return cmd.send(&Event{Command: LIST, Params: []string{buffer}})
		}
	}

	return nil
}

// UserMode requests that the server apply the given mode string to the
// client's own user modes (e.g. "+i", "-R").
func (cmd *Commands) UserMode(modes string) error {
	return cmd.send(&Event{Command: MODE, Params: []string{cmd.c.GetNick(), modes}})
}

// Names requests a list of users joined to channel. If no channels are
// given, the server will return the names of users in every channel the
// client is presently joined to.
func (cmd *Commands) Names(channels ...string) error {
	if len(channels) == 0 {
		return cmd.send(&Event{Command: NAMES})
	}

	for i := 0; i < len(channels); i++ {
		if !IsValidChannel(channels[i]) {
			return &ErrInvalidTarget{Target: channels[i]}
		}
	}

	return cmd.send(&Event{Command: NAMES, Params: []string{strings.Join(channels, ",")}})
}

// Lusers requests the server's current user/server statistics.
func (cmd *Commands) Lusers() error {
	return cmd.send(&Event{Command: LUSERS})
}

// SVersion requests version information from the server (or, if given, a
// specific remote server on the network).
func (cmd *Commands) SVersion(server string) error {
	if server == "" {
		return cmd.send(&Event{Command: VERSION})
	}

	return cmd.send(&Event{Command: VERSION, Params: []string{server}})
}

// Stats requests server statistics of the given query letter (e.g. "m" for
// command usage, "u" for uptime), optionally targeted at a specific server.
func (cmd *Commands) Stats(query, server string) error {
	if server == "" {
		return cmd.send(&Event{Command: STATS, Params: []string{query}})
	}

	return cmd.send(&Event{Command: STATS, Params: []string{query, server}})
}

// Links requests a listing of servers known to the network.
func (cmd *Commands) Links(mask string) error {
	if mask == "" {
		return cmd.send(&Event{Command: LINKS})
	}

	return cmd.send(&Event{Command: LINKS, Params: []string{mask}})
}

// SQuery sends a PRIVMSG-like message to a registered network service.
func (cmd *Commands) SQuery(service, message string) error {
	if !IsValidNick(service) {
		return &ErrInvalidTarget{Target: service}
	}

	return cmd.send(&Event{Command: SQUERY, Params: []string{service}, Trailing: message})
}

// STime requests the current time from the server (or, if given, a specific
// remote server on the network).
func (cmd *Commands) STime(server string) error {
	if server == "" {
		return cmd.send(&Event{Command: TIME})
	}

	return cmd.send(&Event{Command: TIME, Params: []string{server}})
}

// Connect requests that the server attempt to establish a new connection
// to another server on the network. This is an operator-only command.
func (cmd *Commands) Connect(target, port, remote string) error {
	params := []string{target}
	if port != "" {
		params = append(params, port)
	}
	if remote != "" {
		params = append(params, remote)
	}

	return cmd.send(&Event{Command: CONNECT, Params: params})
}

// Trace requests routing information on how the server reaches target.
func (cmd *Commands) Trace(target string) error {
	if target == "" {
		return cmd.send(&Event{Command: TRACE})
	}

	return cmd.send(&Event{Command: TRACE, Params: []string{target}})
}

// Admin requests the name of the administrator of the server (or, if given,
// a specific remote server on the network).
func (cmd *Commands) Admin(server string) error {
	if server == "" {
		return cmd.send(&Event{Command: ADMIN})
	}

	return cmd.send(&Event{Command: ADMIN, Params: []string{server}})
}

// Info requests information describing the server, as well as the persons
// responsible for it.
func (cmd *Commands) Info(server string) error {
	if server == "" {
		return cmd.send(&Event{Command: INFO})
	}

	return cmd.send(&Event{Command: INFO, Params: []string{server}})
}

// Servlist requests a list of services currently connected to the network
// which match mask, and are of the given type.
func (cmd *Commands) Servlist(mask, stype string) error {
	var params []string
	if mask != "" {
		params = append(params, mask)
	}
	if stype != "" {
		params = append(params, stype)
	}

	return cmd.send(&Event{Command: SERVLIST, Params: params})
}

// Kill forcefully disconnects nick from the server, with the given comment.
// This is an operator-only command.
func (cmd *Commands) Kill(nick, comment string) error {
	if !IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}

	return cmd.send(&Event{Command: KILL, Params: []string{nick}, Trailing: comment})
}

// Rehash requests that the server re-read its configuration file. This is
// an operator-only command.
func (cmd *Commands) Rehash() error {
	return cmd.send(&Event{Command: REHASH})
}

// Die requests that the server shuts down. This is an operator-only command.
func (cmd *Commands) Die() error {
	return cmd.send(&Event{Command: DIE})
}

// Restart requests that the server shuts down and restarts itself. This is
// an operator-only command.
func (cmd *Commands) Restart() error {
	return cmd.send(&Event{Command: RESTART})
}

// Users requests a listing of users logged into the server (or, if given, a
// specific remote server on the network).
func (cmd *Commands) Users(server string) error {
	if server == "" {
		return cmd.send(&Event{Command: USERS})
	}

	return cmd.send(&Event{Command: USERS, Params: []string{server}})
}

// Wallops sends a message to all users that have enabled the "wallops" user
// mode. This is typically an operator-only command.
func (cmd *Commands) Wallops(message string) error {
	return cmd.send(&Event{Command: WALLOPS, Trailing: message})
}

// Userhost requests ident/host/away-status information for up to 5
// nicknames at a time.
func (cmd *Commands) Userhost(nicks ...string) error {
	for i := 0; i < len(nicks); i++ {
		if !IsValidNick(nicks[i]) {
			return &ErrInvalidTarget{Target: nicks[i]}
		}
	}

	return cmd.send(&Event{Command: USERHOST, Params: nicks})
}

// Ison checks whether the given nicknames are currently connected to the
// network.
func (cmd *Commands) Ison(nicks ...string) error {
	for i := 0; i < len(nicks); i++ {
		if !IsValidNick(nicks[i]) {
			return &ErrInvalidTarget{Target: nicks[i]}
		}
	}

	return cmd.send(&Event{Command: ISON, Trailing: strings.Join(nicks, " ")})
}
