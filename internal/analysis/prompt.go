package analysis

import "strings"

const basicIntro = `너는 카카오톡 대화 분석 전문가야. 아래 대화 로그를 읽고 두 사람의 관계와 감정을 분석해줘.

[분석 요구사항]
1. 대화에 등장하는 두 명의 화자를 식별해. (대개 '[이름] [시간] 메시지' 형식이야)
2. 대화 맥락(질문을 많이 받는 쪽, 대화를 이끄는 쪽 등)을 보고 '나'가 누구인지 판단해.
3. 결과는 아래 JSON 구조로만 반환해.`

const basicSchema = `{
    "partner_name": "상대방 이름",
    "my_name": "나의 이름",
    "my_sentiment_score": 0~100,
    "partner_sentiment_score": 0~100,
    "my_sentiment_desc": "내가 상대를 어떻게 생각하는지 한 줄 요약",
    "partner_sentiment_desc": "상대가 나를 어떻게 생각하는지 한 줄 요약",
    "relationship_change": "시간 흐름에 따른 관계 변화",
    "sentiment_graph": [
        { "time": "초반", "me": 0~100, "partner": 0~100 },
        { "time": "초반-중반", "me": 0~100, "partner": 0~100 },
        { "time": "중반", "me": 0~100, "partner": 0~100 },
        { "time": "중반-후반", "me": 0~100, "partner": 0~100 },
        { "time": "후반", "me": 0~100, "partner": 0~100 }
    ],
    "communication_style": {
        "affection": 0~100,
        "humor": 0~100,
        "trust": 0~100,
        "conflict": 0~100,
        "frequency": 0~100
    },
    "topics": ["주제1", "주제2", "주제3"],
    "advice": "관계 발전을 위한 조언",
    "summary": "전체 대화 요약",
    "keywords": ["키워드1", "키워드2", "키워드3"]
}`

const basicOutro = `주의: 설명이나 마크다운 없이 순수 JSON 문자열만 반환해.`

const advancedIntro = `너는 카카오톡 대화 분석 전문가야. 아래 대화 로그를 읽고 두 사람의 관계와 감정을 **심층 분석**해줘.

[분석 요구사항]
1. 대화에 등장하는 화자들을 식별해. (대개 '[이름] [시간] 메시지' 형식이야)
2. '나'와 '상대방'을 구분해.
3. 결과는 아래 JSON 구조로 **상세하게** 반환해.`

const advancedSchema = `{
    "partner_name": "상대방 이름",
    "my_name": "나의 이름",
    "my_sentiment_score": 0~100,
    "partner_sentiment_score": 0~100,
    "my_sentiment_desc": "내가 상대를 어떻게 생각하는지 2-3문장 분석",
    "partner_sentiment_desc": "상대가 나를 어떻게 생각하는지 2-3문장 분석",
    "relationship_change": "시간 흐름에 따른 관계 변화 (3-4문장)",
    "sentiment_graph": [
        { "time": "초반", "me": 0~100, "partner": 0~100 },
        { "time": "초반-중반", "me": 0~100, "partner": 0~100 },
        { "time": "중반", "me": 0~100, "partner": 0~100 },
        { "time": "중반-후반", "me": 0~100, "partner": 0~100 },
        { "time": "후반", "me": 0~100, "partner": 0~100 }
    ],
    "communication_style": {
        "affection": 0~100,
        "humor": 0~100,
        "trust": 0~100,
        "conflict": 0~100,
        "frequency": 0~100
    },
    "topics": ["주제1", "주제2", "주제3", "주제4", "주제5"],
    "advice": "관계 발전을 위한 구체적인 조언 (3-4문장)",
    "summary": "대화의 핵심 요약 (3-4문장)",
    "keywords": ["키워드1", "키워드2", "키워드3", "키워드4", "키워드5"],
    "advanced_analysis": {
        "statistics": {
            "total_messages": 0,
            "my_messages": 0,
            "partner_messages": 0,
            "avg_response_time_minutes": 0,
            "most_active_hour": 0~23,
            "emoji_count": 0,
            "photo_count": 0,
            "link_count": 0,
            "daily_average_messages": 0.0
        },
        "deep_emotions": {
            "emotions": {
                "joy": 0~100,
                "sadness": 0~100,
                "anger": 0~100,
                "fear": 0~100,
                "surprise": 0~100,
                "disgust": 0~100
            },
            "emotion_timeline": [
                { "period": "초반", "dominant_emotion": "감정명", "intensity": 0~100 },
                { "period": "중반", "dominant_emotion": "감정명", "intensity": 0~100 },
                { "period": "후반", "dominant_emotion": "감정명", "intensity": 0~100 }
            ],
            "emotion_triggers": [
                { "emotion": "감정명", "trigger": "원인", "context": "맥락 설명" }
            ]
        },
        "patterns": {
            "initiative_ratio": 0~100,
            "question_ratio": 0~100,
            "empathy_score": 0~100,
            "formality_level": "formal|informal|mixed",
            "response_pattern": "quick|normal|delayed",
            "conversation_depth": "shallow|moderate|deep"
        },
        "key_moments": [
            {
                "type": "highlight|conflict|resolution|turning_point",
                "period": "시점 설명",
                "description": "이 순간이 중요한 이유",
                "impact_score": 1~10,
                "quote": "대표 대화 인용 (선택)"
            }
        ],
        "relationship_prediction": {
            "trend": "improving|stable|declining",
            "confidence": 0~100,
            "factors": ["근거1", "근거2"],
            "recommendations": ["추천1", "추천2"]
        },
        "topic_clusters": [
            {
                "name": "주제 클러스터명",
                "frequency": 0~100,
                "sentiment": "positive|neutral|negative",
                "keywords": ["관련 키워드"]
            }
        ]
    }
}`

const advancedOutro = `[중요 지침]
- 마크다운 코드블록 없이 순수 JSON 문자열만 반환해.
- 통계는 대화 내용을 근거로 최대한 정확하게 추정해.
- key_moments는 중요한 순간을 최소 2개, 최대 5개 골라.
- 모든 점수는 대화의 실제 뉘앙스를 반영해야 해.
- 감정 분석은 이모티콘과 말투, 문맥을 함께 고려해.`

// BuildPrompt assembles the instruction text, the JSON template for level
// and the verbatim transcript. It has no side effects.
func BuildPrompt(transcript string, level DetailLevel) string {
	intro, schema, outro := basicIntro, basicSchema, basicOutro
	heading := "[JSON 구조]"
	if level == Advanced {
		intro, schema, outro = advancedIntro, advancedSchema, advancedOutro
		heading = "[JSON 구조 - 상세 분석]"
	}

	var b strings.Builder
	b.Grow(len(intro) + len(schema) + len(outro) + len(transcript) + 64)
	b.WriteString(intro)
	b.WriteString("\n\n")
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(schema)
	b.WriteString("\n\n[대화 데이터]\n")
	b.WriteString(transcript)
	b.WriteString("\n\n")
	b.WriteString(outro)
	b.WriteString("\n")
	return b.String()
}
