package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Target ABIs carry only the functions relayed batches call. The final
// address parameter on each is the acting user: inside a relayed batch
// msg.sender is the relayer contract, so the user is passed explicitly.

// PostFeedABI covers post creation. Replies and reposts reference an
// existing post id; zero means none.
const PostFeedABI = `[
	{"type":"function","name":"createPost","stateMutability":"nonpayable","inputs":[
		{"name":"cid","type":"string"},
		{"name":"replyTo","type":"uint256"},
		{"name":"repostOf","type":"uint256"},
		{"name":"user","type":"address"}
	],"outputs":[]}
]`

// ReactionsABI covers the like toggle.
const ReactionsABI = `[
	{"type":"function","name":"toggleLike","stateMutability":"nonpayable","inputs":[
		{"name":"postId","type":"uint64"},
		{"name":"user","type":"address"}
	],"outputs":[]}
]`

// ProfileRegistryABI covers profile lifecycle. Handles are stored lowercase;
// rich profile content lives on IPFS behind the cid.
const ProfileRegistryABI = `[
	{"type":"function","name":"createProfile","stateMutability":"nonpayable","inputs":[
		{"name":"handle","type":"string"},
		{"name":"cid","type":"string"},
		{"name":"user","type":"address"}
	],"outputs":[]},
	{"type":"function","name":"updateProfile","stateMutability":"nonpayable","inputs":[
		{"name":"cid","type":"string"},
		{"name":"user","type":"address"}
	],"outputs":[]}
]`

var (
	postFeedABI        = mustParseABI(PostFeedABI)
	reactionsABI       = mustParseABI(ReactionsABI)
	profileRegistryABI = mustParseABI(ProfileRegistryABI)
)

// EncodeCreatePost encodes PostFeed.createPost calldata.
func EncodeCreatePost(cid string, replyTo, repostOf uint64, user common.Address) ([]byte, error) {
	return postFeedABI.Pack("createPost",
		cid,
		new(big.Int).SetUint64(replyTo),
		new(big.Int).SetUint64(repostOf),
		user,
	)
}

// EncodeToggleLike encodes Reactions.toggleLike calldata.
func EncodeToggleLike(postID uint64, user common.Address) ([]byte, error) {
	return reactionsABI.Pack("toggleLike", postID, user)
}

// EncodeCreateProfile encodes ProfileRegistry.createProfile calldata.
func EncodeCreateProfile(handle, cid string, user common.Address) ([]byte, error) {
	return profileRegistryABI.Pack("createProfile", handle, cid, user)
}

// EncodeUpdateProfile encodes ProfileRegistry.updateProfile calldata.
func EncodeUpdateProfile(cid string, user common.Address) ([]byte, error) {
	return profileRegistryABI.Pack("updateProfile", cid, user)
}

// AddressBook maps the deployed social contracts a relay deployment fronts.
// Every entry that appears as a batch target must also be allow-listed on
// the relayer contract.
type AddressBook struct {
	BatchRelayer    string `json:"batchRelayer"`
	ProfileRegistry string `json:"profileRegistry"`
	PostFeed        string `json:"postFeed"`
	Reactions       string `json:"reactions"`
	Badges          string `json:"badges"`
}
