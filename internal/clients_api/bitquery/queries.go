package bitquery

const recentTransfersQuery = `query ($network: EthereumNetwork!, $token: String!, $limit: Int!) {
  ethereum(network: $network) {
    transfers(
      currency: {is: $token}
      options: {desc: "block.timestamp.time", limit: $limit}
    ) {
      sender { address }
      receiver { address }
      block { timestamp { time(format: "%Y-%m-%dT%H:%M:%SZ") } }
    }
  }
}`

const balanceQuery = `query ($network: EthereumNetwork!, $address: String!, $token: String!) {
  ethereum(network: $network) {
    address(address: {is: $address}) {
      balances(currency: {is: $token}) {
        value
      }
    }
  }
}`
