package contracts

// ABI fragments for the protocol contracts the toolkit drives. Only the methods
// and events used by the operations and checks are listed.
const (
	OwnableABI = `[
		{"name":"owner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"transferOwnership","type":"function","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]}
	]`

	ERC20ABI = `[
		{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
		{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"owner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"name":"Transfer","type":"event","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
		{"name":"Approval","type":"event","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
	]`

	MultiSigWalletABI = `[
		{"name":"submitTransaction","type":"function","stateMutability":"nonpayable","inputs":[{"name":"destination","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"transactionId","type":"uint256"}]},
		{"name":"confirmTransaction","type":"function","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
		{"name":"revokeConfirmation","type":"function","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
		{"name":"executeTransaction","type":"function","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
		{"name":"isConfirmed","type":"function","stateMutability":"view","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"name":"confirmations","type":"function","stateMutability":"view","inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
		{"name":"getConfirmationCount","type":"function","stateMutability":"view","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[{"name":"count","type":"uint256"}]},
		{"name":"getConfirmations","type":"function","stateMutability":"view","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[{"name":"_confirmations","type":"address[]"}]},
		{"name":"transactions","type":"function","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"destination","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"executed","type":"bool"}]},
		{"name":"getTransactionCount","type":"function","stateMutability":"view","inputs":[{"name":"pending","type":"bool"},{"name":"executed","type":"bool"}],"outputs":[{"name":"count","type":"uint256"}]},
		{"name":"getTransactionIds","type":"function","stateMutability":"view","inputs":[{"name":"from","type":"uint256"},{"name":"to","type":"uint256"},{"name":"pending","type":"bool"},{"name":"executed","type":"bool"}],"outputs":[{"name":"_transactionIds","type":"uint256[]"}]},
		{"name":"getOwners","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
		{"name":"isOwner","type":"function","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
		{"name":"required","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"Submission","type":"event","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":true}]},
		{"name":"Confirmation","type":"event","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"transactionId","type":"uint256","indexed":true}]},
		{"name":"Revocation","type":"event","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"transactionId","type":"uint256","indexed":true}]},
		{"name":"Execution","type":"event","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":true}]},
		{"name":"ExecutionFailure","type":"event","anonymous":false,"inputs":[{"name":"transactionId","type":"uint256","indexed":true}]}
	]`

	LoanTokenABI = `[
		{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
		{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"owner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"loanTokenAddress","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"tokenPrice","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"price","type":"uint256"}]},
		{"name":"totalAssetSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"totalAssetBorrow","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"marketLiquidity","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"borrowInterestRate","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"supplyInterestRate","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"avgBorrowInterestRate","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"nextBorrowInterestRate","type":"function","stateMutability":"view","inputs":[{"name":"borrowAmount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"nextSupplyInterestRate","type":"function","stateMutability":"view","inputs":[{"name":"supplyAmount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"baseRate","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"rateMultiplier","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"lowUtilBaseRate","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"lowUtilRateMultiplier","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"targetLevel","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"kinkLevel","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"maxScaleRate","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"checkPause","type":"function","stateMutability":"view","inputs":[{"name":"funcId","type":"string"}],"outputs":[{"name":"isPaused","type":"bool"}]},
		{"name":"mint","type":"function","stateMutability":"nonpayable","inputs":[{"name":"receiver","type":"address"},{"name":"depositAmount","type":"uint256"}],"outputs":[{"name":"mintAmount","type":"uint256"}]},
		{"name":"burn","type":"function","stateMutability":"nonpayable","inputs":[{"name":"receiver","type":"address"},{"name":"burnAmount","type":"uint256"}],"outputs":[{"name":"loanAmountPaid","type":"uint256"}]},
		{"name":"setDemandCurve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"_baseRate","type":"uint256"},{"name":"_rateMultiplier","type":"uint256"},{"name":"_lowUtilBaseRate","type":"uint256"},{"name":"_lowUtilRateMultiplier","type":"uint256"},{"name":"_targetLevel","type":"uint256"},{"name":"_kinkLevel","type":"uint256"},{"name":"_maxScaleRate","type":"uint256"}],"outputs":[]},
		{"name":"setLiquidityMiningAddress","type":"function","stateMutability":"nonpayable","inputs":[{"name":"LMAddress","type":"address"}],"outputs":[]},
		{"name":"setTransactionLimits","type":"function","stateMutability":"nonpayable","inputs":[{"name":"addresses","type":"address[]"},{"name":"limits","type":"uint256[]"}],"outputs":[]},
		{"name":"toggleFunctionPause","type":"function","stateMutability":"nonpayable","inputs":[{"name":"funcId","type":"string"},{"name":"isPaused","type":"bool"}],"outputs":[]}
	]`

	ProtocolABI = `[
		{"name":"owner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"lendingFeePercent","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"tradingFeePercent","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"borrowingFeePercent","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"liquidationIncentivePercent","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"feesController","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"priceFeeds","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"isProtocolPaused","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
		{"name":"getLoan","type":"function","stateMutability":"view","inputs":[{"name":"loanId","type":"bytes32"}],"outputs":[
			{"name":"loanId","type":"bytes32"},
			{"name":"loanToken","type":"address"},
			{"name":"collateralToken","type":"address"},
			{"name":"principal","type":"uint256"},
			{"name":"collateral","type":"uint256"},
			{"name":"interestOwedPerDay","type":"uint256"},
			{"name":"interestDepositRemaining","type":"uint256"},
			{"name":"startRate","type":"uint256"},
			{"name":"startMargin","type":"uint256"},
			{"name":"maintenanceMargin","type":"uint256"},
			{"name":"currentMargin","type":"uint256"},
			{"name":"maxLoanTerm","type":"uint256"},
			{"name":"endTimestamp","type":"uint256"},
			{"name":"maxLiquidatable","type":"uint256"},
			{"name":"maxSeizable","type":"uint256"}]},
		{"name":"setLendingFeePercent","type":"function","stateMutability":"nonpayable","inputs":[{"name":"newValue","type":"uint256"}],"outputs":[]},
		{"name":"setTradingFeePercent","type":"function","stateMutability":"nonpayable","inputs":[{"name":"newValue","type":"uint256"}],"outputs":[]},
		{"name":"setBorrowingFeePercent","type":"function","stateMutability":"nonpayable","inputs":[{"name":"newValue","type":"uint256"}],"outputs":[]},
		{"name":"setLiquidationIncentivePercent","type":"function","stateMutability":"nonpayable","inputs":[{"name":"newValue","type":"uint256"}],"outputs":[]},
		{"name":"setFeesController","type":"function","stateMutability":"nonpayable","inputs":[{"name":"newController","type":"address"}],"outputs":[]},
		{"name":"togglePaused","type":"function","stateMutability":"nonpayable","inputs":[{"name":"paused","type":"bool"}],"outputs":[]}
	]`

	PriceFeedsABI = `[
		{"name":"queryRate","type":"function","stateMutability":"view","inputs":[{"name":"sourceToken","type":"address"},{"name":"destToken","type":"address"}],"outputs":[{"name":"rate","type":"uint256"},{"name":"precision","type":"uint256"}]},
		{"name":"queryReturn","type":"function","stateMutability":"view","inputs":[{"name":"sourceToken","type":"address"},{"name":"destToken","type":"address"},{"name":"sourceAmount","type":"uint256"}],"outputs":[{"name":"destAmount","type":"uint256"}]}
	]`

	ConverterABI = `[
		{"name":"owner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"newOwner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"anchor","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"converterType","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint16"}]},
		{"name":"isActive","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
		{"name":"reserveTokenCount","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint16"}]},
		{"name":"reserveTokens","type":"function","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
		{"name":"reserveBalance","type":"function","stateMutability":"view","inputs":[{"name":"reserveToken","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"reserveWeight","type":"function","stateMutability":"view","inputs":[{"name":"reserveToken","type":"address"}],"outputs":[{"name":"","type":"uint32"}]},
		{"name":"conversionFee","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint32"}]},
		{"name":"maxConversionFee","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint32"}]},
		{"name":"targetAmountAndFee","type":"function","stateMutability":"view","inputs":[{"name":"sourceToken","type":"address"},{"name":"targetToken","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"},{"name":"","type":"uint256"}]},
		{"name":"setConversionFee","type":"function","stateMutability":"nonpayable","inputs":[{"name":"conversionFee","type":"uint32"}],"outputs":[]},
		{"name":"transferOwnership","type":"function","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
		{"name":"acceptOwnership","type":"function","stateMutability":"nonpayable","inputs":[],"outputs":[]}
	]`

	SovrynSwapNetworkABI = `[
		{"name":"conversionPath","type":"function","stateMutability":"view","inputs":[{"name":"sourceToken","type":"address"},{"name":"targetToken","type":"address"}],"outputs":[{"name":"","type":"address[]"}]},
		{"name":"rateByPath","type":"function","stateMutability":"view","inputs":[{"name":"path","type":"address[]"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
	]`

	VestingRegistryABI = `[
		{"name":"owner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"createVesting","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenOwner","type":"address"},{"name":"amount","type":"uint256"},{"name":"cliff","type":"uint256"},{"name":"duration","type":"uint256"}],"outputs":[]},
		{"name":"createTeamVesting","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenOwner","type":"address"},{"name":"amount","type":"uint256"},{"name":"cliff","type":"uint256"},{"name":"duration","type":"uint256"}],"outputs":[]},
		{"name":"getVesting","type":"function","stateMutability":"view","inputs":[{"name":"tokenOwner","type":"address"}],"outputs":[{"name":"","type":"address"}]},
		{"name":"getTeamVesting","type":"function","stateMutability":"view","inputs":[{"name":"tokenOwner","type":"address"}],"outputs":[{"name":"","type":"address"}]},
		{"name":"stakeTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"vesting","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
		{"name":"VestingCreated","type":"event","anonymous":false,"inputs":[{"name":"tokenOwner","type":"address","indexed":true},{"name":"vesting","type":"address","indexed":false},{"name":"cliff","type":"uint256","indexed":false},{"name":"duration","type":"uint256","indexed":false},{"name":"amount","type":"uint256","indexed":false}]}
	]`

	VestingABI = `[
		{"name":"tokenOwner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"cliff","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"duration","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"startDate","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"endDate","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"stakeTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]}
	]`

	StakingABI = `[
		{"name":"kickoffTS","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"timestampToLockDate","type":"function","stateMutability":"view","inputs":[{"name":"timestamp","type":"uint256"}],"outputs":[{"name":"lockDate","type":"uint256"}]},
		{"name":"getStakes","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"dates","type":"uint256[]"},{"name":"stakes","type":"uint96[]"}]}
	]`
)
