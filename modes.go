// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import (
	"fmt"
	"strings"
	"sync"
)

type CMode struct {
	add     bool
	name    byte
	setting bool
	args    string
}

func (c *CMode) Short() string {
	var status string
	if c.add {
		status = "+"
	} else {
		status = "-"
	}

	return status + string(c.name)
}

func (c *CMode) String() string {
	if len(c.args) == 0 {
		return c.Short()
	}

	return c.Short() + " " + c.args
}

type CModes struct {
	raw           string
	modesListArgs string
	modesArgs     string
	modesSetArgs  string
	modesNoArgs   string

	prefixes string
	modes    []CMode
}

func (c *CModes) String() string {
	var out string
	var args string

	if len(c.modes) > 0 {
		out += "+"
	}

	for i := 0; i < len(c.modes); i++ {
		out += string(c.modes[i].name)

		if len(c.modes[i].args) > 0 {
			args += " " + c.modes[i].args
		}
	}

	return out + args
}

// "modes" is a list of channel modes according to 4 types: "A,B,C,D".
// A = Mode that adds or removes a nick or address to a list. Always has a parameter.
// B = Mode that changes a setting and always has a parameter.
// C = Mode that changes a setting and only has a parameter when set.
// D = Mode that changes a setting and never has a parameter.
// Note: Modes of type A return the list when there is no parameter present.
// Note: Some clients assumes that any mode not listed is of type D.
// Note: Modes in PREFIX are not listed but could be considered type B.
func (c *CModes) hasArg(set bool, mode byte) (hasArgs, isSetting bool) {
	if len(c.raw) < 1 {
		return false, true
	}

	if strings.IndexByte(c.modesListArgs, mode) > -1 {
		return true, false
	}

	if strings.IndexByte(c.modesArgs, mode) > -1 {
		return true, true
	}

	if strings.IndexByte(c.modesSetArgs, mode) > -1 {
		if set {
			return true, true
		}

		return false, true
	}

	if strings.IndexByte(c.prefixes, mode) > -1 {
		return true, false
	}

	return false, true
}

func (c *CModes) apply(modes []CMode) {
	var new []CMode

	for j := 0; j < len(c.modes); j++ {
		isin := false
		for i := 0; i < len(modes); i++ {
			if !modes[i].setting {
				continue
			}
			if c.modes[j].name == modes[i].name && modes[i].add {
				new = append(new, modes[i])
				isin = true
				break
			}
		}

		if !isin {
			new = append(new, c.modes[j])
		}
	}

	for i := 0; i < len(modes); i++ {
		if !modes[i].setting || !modes[i].add {
			continue
		}

		isin := false
		for j := 0; j < len(new); j++ {
			if modes[i].name == new[j].name {
				isin = true
				break
			}
		}

		if !isin {
			new = append(new, modes[i])
		}
	}

	c.modes = new
}

// parse turns a mode string like "+ov-o" plus its parameters into a
// sequence of CModes. If more parameterized modes are read than
// parameters are available to consume, it fails with an
// *ErrProtocolViolation (NotEnoughModeParameters), returning the modes
// successfully parsed so far.
func (c *CModes) parse(flags string, args []string) (out []CMode, err error) {
	// add is the mode state we're currently in. Adding, or removing modes.
	add := true
	var argCount int

	for i := 0; i < len(flags); i++ {
		if flags[i] == 0x2B {
			add = true
			continue
		}
		if flags[i] == 0x2D {
			add = false
			continue
		}

		mode := CMode{
			name: flags[i],
			add:  add,
		}

		hasArgs, isSetting := c.hasArg(add, flags[i])
		if hasArgs {
			if len(args) < argCount+1 {
				return out, &ErrProtocolViolation{Reason: fmt.Sprintf(
					"NotEnoughModeParameters: mode %q requires a parameter", mode.Short(),
				)}
			}
			mode.args = args[argCount]
			argCount++
		}
		mode.setting = isSetting

		out = append(out, mode)
	}

	return out, nil
}

// Copy returns a deep copy of the mode state, safe to modify independently
// of the original.
func (c CModes) Copy() CModes {
	nc := c
	nc.modes = make([]CMode, len(c.modes))
	copy(nc.modes, c.modes)
	return nc
}

func NewCModes(channelModes, userPrefixes string) CModes {
	split := strings.SplitN(channelModes, ",", 4)
	if len(split) != 4 {
		for i := len(split); i < 4; i++ {
			split = append(split, "")
		}
	}

	return CModes{
		raw:           channelModes,
		modesListArgs: split[0],
		modesArgs:     split[1],
		modesSetArgs:  split[2],
		modesNoArgs:   split[3],

		prefixes: userPrefixes,
		modes:    []CMode{},
	}
}

func isValidChannelMode(raw string) bool {
	if len(raw) < 1 {
		return false
	}

	for i := 0; i < len(raw); i++ {
		// Allowed are: ",", A-Z and a-z.
		if raw[i] != 0x2C && (raw[i] < 0x41 || raw[i] > 0x5A) && (raw[i] < 0x61 || raw[i] > 0x7A) {
			return false
		}
	}

	return true
}

func isValidUserPrefix(raw string) bool {
	if len(raw) < 1 {
		return false
	}

	if raw[0] != 0x28 { // (.
		return false
	}

	var keys, rep int
	var passedKeys bool

	// Skip the first one as we know it's (.
	for i := 1; i < len(raw); i++ {
		if raw[i] == 0x29 { // ).
			passedKeys = true
			continue
		}

		if passedKeys {
			rep++
		} else {
			keys++
		}
	}

	return keys == rep
}

func parsePrefixes(raw string) (modes, prefixes string) {
	if !isValidUserPrefix(raw) {
		return modes, prefixes
	}

	i := strings.Index(raw, ")")
	if i < 1 {
		return modes, prefixes
	}

	return raw[1:i], raw[i+1:]
}

// handleMODE applies channel modes when the target is a channel, applies
// user modes when the target is the local nick, and otherwise reports a
// protocol violation: MODE's first parameter must be one or the other.
func handleMODE(c *Client, e Event) {
	// Check if it's a RPL_CHANNELMODEIS.
	if e.Command == RPL_CHANNELMODEIS && len(e.Params) > 2 {
		// RPL_CHANNELMODEIS sends the user as the first param, skip it.
		e.Params = e.Params[1:]
	}

	// Should be at least MODE <target> <flags>, to be useful.
	if len(e.Params) < 2 {
		return
	}

	target := e.Params[0]
	flags := e.Params[1]
	var args []string
	if len(e.Params) > 2 {
		args = append(args, e.Params[2:]...)
	}

	switch {
	case IsValidChannel(target):
		handleChannelMODE(c, target, flags, args)
	case ToRFC1459(target) == c.GetID():
		c.applyUserModes(flags)
	default:
		c.fireProtocolViolation(fmt.Sprintf("MODE target %q is neither a channel nor the local nick", target))
	}
}

func handleChannelMODE(c *Client, channelName, flags string, args []string) {
	c.state.Lock()
	channel := c.state.lookupChannel(channelName)
	if channel == nil {
		c.state.Unlock()
		return
	}

	modes, err := channel.Modes.parse(flags, args)
	if err != nil {
		c.state.Unlock()
		c.fireProtocolViolation(err.Error())
		return
	}
	channel.Modes.apply(modes)

	// Loop through and update users modes as necessary.
	for i := 0; i < len(modes); i++ {
		if modes[i].setting || len(modes[i].args) == 0 {
			continue
		}

		users := c.state.lookupUsers("nick", modes[i].args)
		for j := 0; j < len(users); j++ {
			users[j].Perms.setFromMode(channel.Name, modes[i])
		}
	}

	c.state.Unlock()
}

// applyUserModes updates the local user's own mode set from a mode string
// like "+iw" or "+iw-i". Non-parameterized, idempotent: re-adding a set
// mode or re-removing an unset one is a no-op.
func (c *Client) applyUserModes(flags string) {
	c.state.Lock()
	defer c.state.Unlock()

	add := true
	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case '+':
			add = true
		case '-':
			add = false
		default:
			mode := string(flags[i])
			if add {
				if !strings.Contains(c.state.umodes, mode) {
					c.state.umodes += mode
				}
			} else {
				c.state.umodes = strings.ReplaceAll(c.state.umodes, mode, "")
			}
		}
	}
}

func (s *state) chanModes() string {
	if v, ok := s.serverOptions.Get("CHANMODES"); ok {
		if modes, sok := v.(string); sok && isValidChannelMode(modes) {
			return modes
		}
	}

	return ModeDefaults
}

func (s *state) userPrefixes() string {
	if v, ok := s.serverOptions.Get("PREFIX"); ok {
		if prefix, sok := v.(string); sok && isValidUserPrefix(prefix) {
			return prefix
		}
	}

	return DefaultPrefixes
}

// Perms contains the channel-based user permissions for a single channel.
// The minimum op, and voice should be supported on all networks. This also
// supports non-rfc Owner, Admin, and HalfOp, if the network has support
// for it.
type Perms struct {
	// Owner (non-rfc) indicates that the user has full permissions to the
	// channel. More than one user can have owner permission.
	Owner bool
	// Admin (non-rfc) is commonly given to users that are trusted enough
	// to manage channel permissions, as well as higher level service settings.
	Admin bool
	// Op is commonly given to trusted users who can manage a given channel
	// by kicking, and banning users.
	Op bool
	// HalfOp (non-rfc) is commonly used to give users permissions like the
	// ability to kick, without giving them greater abilities to ban all users.
	HalfOp bool
	// Voice indicates the user has voice permissions, commonly given to known
	// users, wih very light trust, or to indicate a user is active.
	Voice bool
}

// IsAdmin indicates that the user has banning abilities, and are likely a
// very trustable user (e.g. op+).
func (m Perms) IsAdmin() bool {
	if m.Owner || m.Admin || m.Op {
		return true
	}

	return false
}

// IsTrusted indicates that the user at least has modes set upon them, higher
// than a regular joining user.
func (m Perms) IsTrusted() bool {
	if m.IsAdmin() || m.HalfOp || m.Voice {
		return true
	}

	return false
}

// reset resets the modes of a user.
func (m *Perms) reset() {
	m.Owner = false
	m.Admin = false
	m.Op = false
	m.HalfOp = false
	m.Voice = false
}

// set translates raw prefix characters into proper permissions. Only
// use this function when you have a session lock.
func (m *Perms) set(prefix string, append bool) {
	if !append {
		m.reset()
	}

	for i := 0; i < len(prefix); i++ {
		switch string(prefix[i]) {
		case OwnerPrefix:
			m.Owner = true
		case AdminPrefix:
			m.Admin = true
		case OperatorPrefix:
			m.Op = true
		case HalfOperatorPrefix:
			m.HalfOp = true
		case VoicePrefix:
			m.Voice = true
		}
	}
}

func (m *Perms) setFromMode(mode CMode) {
	switch string(mode.name) {
	case ModeOwner:
		m.Owner = mode.add
	case ModeAdmin:
		m.Admin = mode.add
	case ModeOperator:
		m.Op = mode.add
	case ModeHalfOperator:
		m.HalfOp = mode.add
	case ModeVoice:
		m.Voice = mode.add
	}
}

// UserPerms tracks a user's Perms on a per-channel basis. A user may hold
// different permissions in each channel they're a member of.
type UserPerms struct {
	mu       sync.RWMutex
	channels map[string]Perms
}

// Lookup returns the permissions a user holds in the given channel. ok is
// false if the user isn't tracked as having any permissions set there.
func (u *UserPerms) Lookup(channel string) (perms Perms, ok bool) {
	if u == nil {
		return Perms{}, false
	}

	u.mu.RLock()
	defer u.mu.RUnlock()

	perms, ok = u.channels[ToRFC1459(channel)]
	return perms, ok
}

// set stores the given permissions for the user in the given channel.
func (u *UserPerms) set(channel string, perm Perms) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.channels == nil {
		u.channels = make(map[string]Perms)
	}

	u.channels[ToRFC1459(channel)] = perm
}

// remove discards any tracked permissions for the user in the given channel.
func (u *UserPerms) remove(channel string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	delete(u.channels, ToRFC1459(channel))
}

// setFromMode applies a single parsed channel mode to the user's
// permissions in the given channel.
func (u *UserPerms) setFromMode(channel string, mode CMode) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.channels == nil {
		u.channels = make(map[string]Perms)
	}

	name := ToRFC1459(channel)
	p := u.channels[name]
	p.setFromMode(mode)
	u.channels[name] = p
}

// Copy returns a deep copy of the user's per-channel permissions.
func (u *UserPerms) Copy() *UserPerms {
	if u == nil {
		return nil
	}

	u.mu.RLock()
	defer u.mu.RUnlock()

	nu := &UserPerms{channels: make(map[string]Perms, len(u.channels))}
	for k, v := range u.channels {
		nu.channels[k] = v
	}

	return nu
}

// parseUserPrefix parses a raw mode line, like "@user" or "@+user".
func parseUserPrefix(raw string) (modes, nick string, success bool) {
	for i := 0; i < len(raw); i++ {
		char := string(raw[i])

		if char == OwnerPrefix || char == AdminPrefix || char == HalfOperatorPrefix ||
			char == OperatorPrefix || char == VoicePrefix {
			modes += char
			continue
		}

		// Assume we've gotten to the nickname part.
		// With userhost-in-names the entry is "nick!user@host", so only the
		// nick part is validated.
		if !IsValidNick(ParseSource(raw[i:]).Name) {
			return modes, nick, false
		}

		nick = raw[i:]

		return modes, nick, true
	}

	return
}
