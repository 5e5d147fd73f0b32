package i18n

var catalog = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":               "请求参数错误",
		"error.unauthorized":              "未登录或登录已失效",
		"error.forbidden":                 "没有访问权限",
		"error.jwt_secret_missing":        "服务端未配置 JWT 密钥",
		"error.token_invalid":             "登录凭证无效",
		"error.token_revoked":             "登录凭证已失效，请重新登录",
		"error.auth_header_missing":       "缺少 Authorization 请求头",
		"error.auth_header_invalid":       "Authorization 格式错误",
		"error.admin_id_invalid":          "管理员 ID 无效",
		"error.admin_id_type_invalid":     "管理员 ID 类型错误",
		"error.admin_login_invalid":       "用户名或密码错误",
		"error.admin_not_found":           "管理员不存在",
		"error.login_failed":              "登录失败",
		"error.login_too_many":            "登录尝试过于频繁，请 %d 秒后再试",
		"error.rate_limited":              "请求过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":    "限流服务暂不可用",
		"error.password_old_invalid":      "原密码错误",
		"error.password_weak":             "密码强度不足",
		"error.password_min_length":       "密码长度至少 %d 位",
		"error.password_require_upper":    "密码需包含大写字母",
		"error.password_require_lower":    "密码需包含小写字母",
		"error.password_require_number":   "密码需包含数字",
		"error.password_require_special":  "密码需包含特殊字符",
		"error.save_failed":               "保存失败",
		"error.config_fetch_failed":       "获取配置失败",
		"error.captcha_required":          "请完成验证码",
		"error.captcha_invalid":           "验证码错误",
		"error.captcha_config_invalid":    "验证码配置错误",
		"error.captcha_verify_failed":     "验证码校验失败",
		"error.captcha_unavailable":       "验证码未启用",
		"error.captcha_generate_failed":   "验证码生成失败",
		"error.card_not_found":            "卡片不存在",
		"error.card_fetch_failed":         "获取卡片失败",
		"error.card_create_failed":        "创建卡片失败",
		"error.card_update_failed":        "更新卡片失败",
		"error.card_delete_failed":        "删除卡片失败",
		"error.card_invalid":              "卡片参数不合法",
		"error.card_exhausted":            "奖励已被领完",
		"error.card_expired":              "奖励已过期",
		"error.card_disabled":             "该奖励暂不可领取",
		"error.claim_store_unavailable":   "服务繁忙，请稍后重试",
		"error.claim_record_failed":       "领取记录保存失败，请联系商家",
		"error.claim_contact_invalid":     "联系方式格式错误",
		"error.claim_channel_invalid":     "不支持的通知方式",
		"error.claim_cooldown":            "请勿重复领取",
		"error.claim_too_many":            "领取过于频繁，请 %d 秒后再试",
		"error.claim_fetch_failed":        "获取领取记录失败",
		"error.claim_export_failed":       "导出领取记录失败",
		"error.dashboard_fetch_failed":    "获取仪表盘数据失败",
		"error.upload_failed":             "文件上传失败",
		"error.upload_file_missing":       "请选择要上传的文件",
		"error.qrcode_generate_failed":    "二维码生成失败",
		"error.authz_role_invalid":        "角色不合法",
		"error.claim_not_found":           "领取记录不存在",
		"error.notification_already_sent": "通知已发送，无需重发",
		"error.notify_failed":             "通知发送失败",
		"error.email_disabled":            "邮件通知未启用",
		"error.sms_disabled":              "短信通知未启用",
		"error.upload_too_large":          "文件大小超过限制",
		"error.upload_type_not_allowed":   "不支持的文件类型",
		"error.upload_image_oversize":     "图片尺寸超过限制",
		"error.audit_fetch_failed":        "获取审计日志失败",
		"error.service_unavailable":       "服务暂不可用",
		"claim.email.subject":             "您的奖励已领取：%s",
		"claim.email.body":                "恭喜！您已成功领取 %s 的奖励。\n\n%s\n%s\n\n地址：%s\n领取编号：%s\n\n到店出示本消息即可兑换。",
		"claim.sms.body":                  "【%s】您已领取奖励：%s。领取编号 %s，到店出示即可兑换。",
		"smtp.test.subject":               "SMTP 配置测试邮件",
		"smtp.test.body":                  "这是一封来自 QRewards 的测试邮件，说明当前 SMTP 配置可正常发送。",
		"sms.test.body":                   "这是一条来自 QRewards 的测试短信。",
	},
	LocaleTW: {
		"error.bad_request":             "請求參數錯誤",
		"error.unauthorized":            "未登入或登入已失效",
		"error.forbidden":               "沒有存取權限",
		"error.token_invalid":           "登入憑證無效",
		"error.token_revoked":           "登入憑證已失效，請重新登入",
		"error.admin_login_invalid":     "使用者名稱或密碼錯誤",
		"error.login_too_many":          "登入嘗試過於頻繁，請 %d 秒後再試",
		"error.rate_limited":            "請求過於頻繁，請 %d 秒後再試",
		"error.password_old_invalid":    "原密碼錯誤",
		"error.password_min_length":     "密碼長度至少 %d 位",
		"error.captcha_required":        "請完成驗證碼",
		"error.captcha_invalid":         "驗證碼錯誤",
		"error.card_not_found":          "卡片不存在",
		"error.card_exhausted":          "獎勵已被領完",
		"error.card_expired":            "獎勵已過期",
		"error.card_disabled":           "該獎勵暫不可領取",
		"error.claim_store_unavailable": "服務繁忙，請稍後重試",
		"error.claim_record_failed":     "領取紀錄保存失敗，請聯繫商家",
		"error.claim_contact_invalid":   "聯絡方式格式錯誤",
		"error.claim_channel_invalid":   "不支援的通知方式",
		"error.claim_cooldown":          "請勿重複領取",
		"error.claim_too_many":          "領取過於頻繁，請 %d 秒後再試",
		"claim.email.subject":           "您的獎勵已領取：%s",
		"claim.email.body":              "恭喜！您已成功領取 %s 的獎勵。\n\n%s\n%s\n\n地址：%s\n領取編號：%s\n\n到店出示本訊息即可兌換。",
		"claim.sms.body":                "【%s】您已領取獎勵：%s。領取編號 %s，到店出示即可兌換。",
	},
	LocaleEN: {
		"error.bad_request":               "Invalid request parameters",
		"error.unauthorized":              "Not signed in or session expired",
		"error.forbidden":                 "Permission denied",
		"error.jwt_secret_missing":        "JWT secret is not configured",
		"error.token_invalid":             "Invalid token",
		"error.token_revoked":             "Token revoked, please sign in again",
		"error.auth_header_missing":       "Missing Authorization header",
		"error.auth_header_invalid":       "Malformed Authorization header",
		"error.admin_id_invalid":          "Invalid admin id",
		"error.admin_id_type_invalid":     "Invalid admin id type",
		"error.admin_login_invalid":       "Invalid username or password",
		"error.admin_not_found":           "Admin not found",
		"error.login_failed":              "Login failed",
		"error.login_too_many":            "Too many login attempts, retry in %d seconds",
		"error.rate_limited":              "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":    "Rate limiter unavailable",
		"error.password_old_invalid":      "Current password is incorrect",
		"error.password_weak":             "Password is too weak",
		"error.password_min_length":       "Password must be at least %d characters",
		"error.password_require_upper":    "Password must contain an uppercase letter",
		"error.password_require_lower":    "Password must contain a lowercase letter",
		"error.password_require_number":   "Password must contain a digit",
		"error.password_require_special":  "Password must contain a special character",
		"error.save_failed":               "Save failed",
		"error.config_fetch_failed":       "Failed to load config",
		"error.captcha_required":          "Captcha required",
		"error.captcha_invalid":           "Invalid captcha",
		"error.captcha_config_invalid":    "Captcha misconfigured",
		"error.captcha_verify_failed":     "Captcha verification failed",
		"error.captcha_unavailable":       "Captcha is not enabled",
		"error.captcha_generate_failed":   "Failed to generate captcha",
		"error.card_not_found":            "Card not found",
		"error.card_fetch_failed":         "Failed to load card",
		"error.card_create_failed":        "Failed to create card",
		"error.card_update_failed":        "Failed to update card",
		"error.card_delete_failed":        "Failed to delete card",
		"error.card_invalid":              "Invalid card parameters",
		"error.card_exhausted":            "This reward has been fully claimed",
		"error.card_expired":              "This reward has expired",
		"error.card_disabled":             "This reward is not available",
		"error.claim_store_unavailable":   "Service busy, please try again",
		"error.claim_record_failed":       "Your claim could not be saved, please contact the business",
		"error.claim_contact_invalid":     "Invalid contact",
		"error.claim_channel_invalid":     "Unsupported notification channel",
		"error.claim_cooldown":            "You have already claimed this reward",
		"error.claim_too_many":            "Too many claims, retry in %d seconds",
		"error.claim_fetch_failed":        "Failed to load claims",
		"error.claim_export_failed":       "Failed to export claims",
		"error.dashboard_fetch_failed":    "Failed to load dashboard",
		"error.upload_failed":             "Upload failed",
		"error.upload_file_missing":       "No file provided",
		"error.qrcode_generate_failed":    "Failed to generate QR code",
		"error.authz_role_invalid":        "Invalid role",
		"error.claim_not_found":           "Claim not found",
		"error.notification_already_sent": "Notification already sent",
		"error.notify_failed":             "Failed to send notification",
		"error.email_disabled":            "Email notifications are disabled",
		"error.sms_disabled":              "SMS notifications are disabled",
		"error.upload_too_large":          "File is too large",
		"error.upload_type_not_allowed":   "Unsupported file type",
		"error.upload_image_oversize":     "Image dimensions exceed the limit",
		"error.audit_fetch_failed":        "Failed to load audit logs",
		"error.service_unavailable":       "Service unavailable",
		"claim.email.subject":             "Your reward is claimed: %s",
		"claim.email.body":                "Congratulations! You claimed a reward from %s.\n\n%s\n%s\n\nAddress: %s\nClaim No: %s\n\nShow this message in store to redeem.",
		"claim.sms.body":                  "[%s] Reward claimed: %s. Claim No %s, show it in store to redeem.",
		"smtp.test.subject":               "SMTP test email",
		"smtp.test.body":                  "This is a test email from QRewards. Your SMTP settings work.",
		"sms.test.body":                   "This is a test SMS from QRewards.",
	},
}
