package client

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/somnia-social/relay/contracts"
)

// Action is one logical user intent that maps to a single allow-listed
// contract call. Encode returns the target address and calldata; the
// builder preserves action order as call order.
type Action interface {
	Encode(book contracts.AddressBook, user common.Address) (target string, data []byte, err error)
}

// CreatePost publishes a post whose body lives on IPFS behind CID.
// ReplyTo and RepostOf reference existing post ids; zero means none.
type CreatePost struct {
	CID      string
	ReplyTo  uint64
	RepostOf uint64
}

func (a CreatePost) Encode(book contracts.AddressBook, user common.Address) (string, []byte, error) {
	if book.PostFeed == "" {
		return "", nil, fmt.Errorf("post feed address not configured")
	}
	if a.CID == "" {
		return "", nil, fmt.Errorf("post cid is required")
	}
	data, err := contracts.EncodeCreatePost(a.CID, a.ReplyTo, a.RepostOf, user)
	if err != nil {
		return "", nil, err
	}
	return book.PostFeed, data, nil
}

// ToggleLike flips the user's like on a post.
type ToggleLike struct {
	PostID uint64
}

func (a ToggleLike) Encode(book contracts.AddressBook, user common.Address) (string, []byte, error) {
	if book.Reactions == "" {
		return "", nil, fmt.Errorf("reactions address not configured")
	}
	data, err := contracts.EncodeToggleLike(a.PostID, user)
	if err != nil {
		return "", nil, err
	}
	return book.Reactions, data, nil
}

// CreateProfile registers a handle with profile content on IPFS. Handles
// are lowercased before encoding, matching the registry's storage form.
type CreateProfile struct {
	Handle string
	CID    string
}

func (a CreateProfile) Encode(book contracts.AddressBook, user common.Address) (string, []byte, error) {
	if book.ProfileRegistry == "" {
		return "", nil, fmt.Errorf("profile registry address not configured")
	}
	if a.Handle == "" || a.CID == "" {
		return "", nil, fmt.Errorf("profile handle and cid are required")
	}
	data, err := contracts.EncodeCreateProfile(strings.ToLower(a.Handle), a.CID, user)
	if err != nil {
		return "", nil, err
	}
	return book.ProfileRegistry, data, nil
}

// UpdateProfile points the user's profile at new IPFS content.
type UpdateProfile struct {
	CID string
}

func (a UpdateProfile) Encode(book contracts.AddressBook, user common.Address) (string, []byte, error) {
	if book.ProfileRegistry == "" {
		return "", nil, fmt.Errorf("profile registry address not configured")
	}
	if a.CID == "" {
		return "", nil, fmt.Errorf("profile cid is required")
	}
	data, err := contracts.EncodeUpdateProfile(a.CID, user)
	if err != nil {
		return "", nil, err
	}
	return book.ProfileRegistry, data, nil
}
