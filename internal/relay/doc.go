// Package relay 实现中继核心：连接注册表与请求路由引擎
//
// 核心由四部分组成：
//   - Registry: 身份 → 活跃会话集合的注册表，支持扇出发送与死连接自愈剪除
//   - PendingTable: 关联 ID → {请求者, 执行者, 请求类型} 的待处理请求表
//   - Router: 消息协议的校验、关联与转发规则
//   - Session: 单条 WebSocket 连接的生命周期（注册 → 读循环 → 注销 → 清理）
//
// 消息协议（JSON，type 字段区分）：
//
//	request      peer → relay      发起代理抓取
//	fetch        relay → executor  指示执行者抓取
//	response     executor → peer   终态结果（经 relay 关联转发）
//	stream_chunk executor → peer   流式分片（经 relay 关联转发）
//	error        双向              应用级错误（同样走关联转发）
//	ping/pong    peer ↔ relay      应用级探活
//
// 信任边界：身份由连接方自行声明，不做认证。任何对端都可以
// 冒用任意身份字符串，部署方需在外层自行解决鉴权。
package relay
