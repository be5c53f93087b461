// SPDX-License-Identifier: GPL-3.0-or-later

package netline

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsIPv6ValidAddress(t *testing.T) {
	assert.True(t, IsIPv6ValidAddress("::1"))
	assert.True(t, IsIPv6ValidAddress("fe80::1%eth0"))
	assert.True(t, IsIPv6ValidAddress("2001:db8::1"))
	assert.False(t, IsIPv6ValidAddress("127.0.0.1"))
	assert.False(t, IsIPv6ValidAddress("not-an-address"))
	assert.False(t, IsIPv6ValidAddress(""))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "fe80::1%eth0", NormalizeAddress("FE80::0001%eth0"))
	assert.Equal(t, "2001:db8::1", NormalizeAddress("2001:0DB8:0000:0000:0000:0000:0000:0001"))
	// non-IPv6 input is returned unchanged
	assert.Equal(t, "127.0.0.1", NormalizeAddress("127.0.0.1"))
	assert.Equal(t, "garbage", NormalizeAddress("garbage"))
}

func TestNormalizeAddressIdempotent(t *testing.T) {
	inputs := []string{"FE80::0001%eth0", "2001:0DB8::1", "127.0.0.1", "::ffff:1.2.3.4"}
	for _, s := range inputs {
		once := NormalizeAddress(s)
		twice := NormalizeAddress(once)
		assert.Equal(t, once, twice, "NormalizeAddress not idempotent for %q", s)
		assert.Equal(t, IsIPv6ValidAddress(s), IsIPv6ValidAddress(once),
			"IsIPv6ValidAddress changed after normalizing %q", s)
	}
}

func TestIsLinkLocal(t *testing.T) {
	assert.True(t, IsLinkLocal("fe80::1"))
	assert.True(t, IsLinkLocal("FE80::0001%eth0"))
	assert.False(t, IsLinkLocal("2001:db8::1"))
	assert.False(t, IsLinkLocal("127.0.0.1"))
}

func TestGetIPFromStorage(t *testing.T) {
	ip, err := GetIPFromStorage(&net.TCPAddr{IP: net.ParseIP("192.0.2.1"), Port: 80})
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", ip)

	ip, err = GetIPFromStorage(&net.UDPAddr{IP: net.ParseIP("::1"), Port: 53})
	require.NoError(t, err)
	assert.Equal(t, "::1", ip)

	_, err = GetIPFromStorage(nil)
	require.Error(t, err)
	var addrErr *AddressError
	assert.ErrorAs(t, err, &addrErr)
}

func TestIsBroadcast(t *testing.T) {
	assert.True(t, IsBroadcast("255.255.255.255"))
	assert.True(t, IsBroadcast("192.168.1.255"))
	assert.True(t, IsBroadcast("0.0.0.0"))
	assert.False(t, IsBroadcast("192.168.1.1"))
	assert.False(t, IsBroadcast("::1"))
}
