package carrier

// Summary is the account overview returned by the summary endpoint.
// Flow values are KB, balance is cents, voice is minutes.
type Summary struct {
	Phonenum     string     `json:"phonenum"`
	Balance      int64      `json:"balance"`
	VoiceUsage   int64      `json:"voiceUsage"`
	VoiceTotal   int64      `json:"voiceTotal"`
	FlowUse      int64      `json:"flowUse"`
	FlowTotal    int64      `json:"flowTotal"`
	FlowOver     int64      `json:"flowOver"`
	CommonUse    int64      `json:"commonUse"`
	CommonTotal  int64      `json:"commonTotal"`
	CommonOver   int64      `json:"commonOver"`
	SpecialUse   int64      `json:"specialUse"`
	SpecialTotal int64      `json:"specialTotal"`
	CreateTime   string     `json:"createTime"`
	FlowItems    []FlowItem `json:"flowItems"`
}

type FlowItem struct {
	Name    string `json:"name"`
	Use     int64  `json:"use"`
	Balance int64  `json:"balance"`
	Total   int64  `json:"total"`
}

// FluxPackage holds the per-package flow breakdown.
type FluxPackage struct {
	ProductOFFRatable struct {
		RatableResourcePackages []ResourcePackageGroup `json:"ratableResourcePackages"`
	} `json:"productOFFRatable"`
}

type ResourcePackageGroup struct {
	Title        string        `json:"title"`
	ProductInfos []ProductInfo `json:"productInfos"`
}

type ProductInfo struct {
	Title         string `json:"title"`
	LeftTitle     string `json:"leftTitle,omitempty"`
	LeftHighlight string `json:"leftHighlight,omitempty"`
	RightCommon   string `json:"rightCommon,omitempty"`
	InfiniteTitle string `json:"infiniteTitle,omitempty"`
	InfiniteValue string `json:"infiniteValue,omitempty"`
	InfiniteUnit  string `json:"infiniteUnit,omitempty"`
}

// ImportantData carries membership, account and balance details.
type ImportantData struct {
	MemberInfo  *MemberInfo  `json:"memberInfo,omitempty"`
	AccountInfo *AccountInfo `json:"accountInfo,omitempty"`
	BalanceInfo *BalanceInfo `json:"balanceInfo,omitempty"`
}

type MemberInfo struct {
	MemberGrade string `json:"memberGrade,omitempty"`
	MemberName  string `json:"memberName,omitempty"`
}

type AccountInfo struct {
	AccountStatus string `json:"accountStatus,omitempty"`
	CreditLevel   string `json:"creditLevel,omitempty"`
}

type BalanceInfo struct {
	RealBalance   float64 `json:"realBalance,omitempty"`
	CreditBalance float64 `json:"creditBalance,omitempty"`
}

// ShareUsage describes a shared plan and the usage of each member.
type ShareUsage struct {
	SharePhoneBeans []SharePhoneBean `json:"sharePhoneBeans,omitempty"`
	ShareTypeBeans  []ShareTypeBean  `json:"shareTypeBeans,omitempty"`
}

type SharePhoneBean struct {
	SharePhoneNum string `json:"sharePhoneNum"`
	PhoneName     string `json:"phoneName,omitempty"`
}

type ShareTypeBean struct {
	ShareTypeName   string           `json:"shareTypeName"`
	ShareUsageInfos []ShareUsageInfo `json:"shareUsageInfos"`
}

type ShareUsageInfo struct {
	ShareUsageName    string             `json:"shareUsageName"`
	ShareUsageAmounts []ShareUsageAmount `json:"shareUsageAmounts"`
}

type ShareUsageAmount struct {
	PhoneNum    string  `json:"phoneNum"`
	UsageAmount float64 `json:"usageAmount"`
	TotalAmount float64 `json:"totalAmount"`
}

// Bundle is one complete fetch: the two mandatory payloads plus
// whichever optional payloads succeeded.
type Bundle struct {
	Summary       *Summary       `json:"summary"`
	FluxPackage   *FluxPackage   `json:"fluxPackage"`
	ImportantData *ImportantData `json:"importantData,omitempty"`
	ShareUsage    *ShareUsage    `json:"shareUsage,omitempty"`
}

// EndpointHealth reports per-endpoint probe results. Overall requires
// both mandatory endpoints.
type EndpointHealth struct {
	Summary       bool `json:"summary"`
	FluxPackage   bool `json:"fluxPackage"`
	ImportantData bool `json:"importantData"`
	ShareUsage    bool `json:"shareUsage"`
	Overall       bool `json:"overall"`
}
